package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutyplan.onebusaway.org/internal/appconf"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(flags{port: 9999}, map[string]bool{})
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Port, "unset flags do not override")
		assert.Equal(t, []string{"test"}, cfg.ApiKeys)
	})

	t.Run("explicit flags override the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: 5000\nenv: production\nschedule:\n  blocks_csv: file.csv\n  service_id: WK\n"), 0o600))

		f := flags{configPath: path, port: 6000, apiKeys: "a, b", gtfs: "https://example.com/gtfs.zip"}
		cfg, err := loadConfig(f, map[string]bool{"port": true, "api-keys": true, "gtfs": true})
		require.NoError(t, err)

		assert.Equal(t, 6000, cfg.Port)
		assert.Equal(t, appconf.Production, cfg.Env)
		assert.Equal(t, []string{"a", "b"}, cfg.ApiKeys)
		assert.Equal(t, appconf.ScheduleConfig{GtfsURL: "https://example.com/gtfs.zip", ServiceID: "WK"}, cfg.Schedule)
	})

	t.Run("storage path default", func(t *testing.T) {
		cfg, err := loadConfig(flags{storage: "sqlite"}, map[string]bool{"storage": true})
		require.NoError(t, err)
		assert.Equal(t, "duties.db", cfg.Storage.Path)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := loadConfig(flags{storage: "redis"}, map[string]bool{"storage": true})
		assert.Error(t, err)

		_, err = loadConfig(flags{port: 70000}, map[string]bool{"port": true})
		assert.Error(t, err)
	})
}
