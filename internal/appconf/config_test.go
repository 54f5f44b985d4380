package appconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutyplan.onebusaway.org/internal/duty"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("yaml file", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", `port: 8080
env: production
api_keys: ["alpha", " beta "]
storage:
  backend: sqlite
  path: /var/lib/duties.db
schedule:
  blocks_csv: blocks.csv
duty:
  max_continuous_minutes: 200
  min_break_minutes: 15
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, Production, cfg.Env)
		assert.Equal(t, []string{"alpha", "beta"}, cfg.ApiKeys)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "/var/lib/duties.db", cfg.Storage.Path)
		assert.Equal(t, "blocks.csv", cfg.Schedule.BlocksCSV)

		settings := cfg.Duty.Settings()
		assert.Equal(t, 200.0, settings.MaxContinuousMinutes)
		assert.Equal(t, 15.0, settings.MinBreakMinutes)
		assert.Equal(t, float64(duty.DefaultMaxDailyMinutes), settings.MaxDailyMinutes)
		assert.Equal(t, duty.DefaultUndoStackLimit, settings.UndoStackLimit)
	})

	t.Run("json file", func(t *testing.T) {
		path := writeConfig(t, "config.json", `{"port": 5000, "storage": {"backend": "disk"}}`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Port)
		assert.Equal(t, "duty-snapshots", cfg.Storage.Path)
	})

	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Port)
		assert.Equal(t, Development, cfg.Env)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, duty.DefaultSettings(), cfg.Duty.Settings())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("DUTY_PORT", "9090")
		t.Setenv("DUTY_STORAGE__BACKEND", "sqlite")
		t.Setenv("DUTY_API_KEYS", "one,two")
		cfg, err := Load(writeConfig(t, "config.yaml", "port: 8080\n"))
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "duties.db", cfg.Storage.Path)
		assert.Equal(t, []string{"one", "two"}, cfg.ApiKeys)
	})

	t.Run("gtfs schedule", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "config.yaml", "schedule:\n  gtfs_url: http://example.com/gtfs.zip\n  service_id: WEEKDAY\n  refresh_minutes: 30\n"))
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/gtfs.zip", cfg.Schedule.GtfsSource())
		assert.Equal(t, "WEEKDAY", cfg.Schedule.ServiceID)
		assert.Equal(t, 30, cfg.Schedule.RefreshMinutes)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.toml", "port = 1"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := map[string]string{
			"unknown backend":   "storage:\n  backend: redis\n",
			"negative break":    "duty:\n  min_break_minutes: -5\n",
			"two schedules":     "schedule:\n  blocks_csv: a.csv\n  gtfs_url: http://example.com/gtfs.zip\n",
			"negative refresh":  "schedule:\n  gtfs_url: http://example.com/gtfs.zip\n  refresh_minutes: -1\n",
			"port out of range": "port: 70000\n",
		}
		for name, data := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := Load(writeConfig(t, "config.yaml", data))
				assert.Error(t, err)
			})
		}
	})
}

func TestEnvFlagToEnvironment(t *testing.T) {
	assert.Equal(t, Test, EnvFlagToEnvironment("test"))
	assert.Equal(t, Production, EnvFlagToEnvironment("PROD"))
	assert.Equal(t, Development, EnvFlagToEnvironment("staging"))
}

func TestSplitAPIKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitAPIKeys(" a, ,b,"))
	assert.Empty(t, SplitAPIKeys(""))
}
