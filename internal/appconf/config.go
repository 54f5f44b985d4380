package appconf

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/persistence"
)

// EnvPrefix marks environment variables that override file settings. Nested keys are separated by
// a double underscore, e.g. DUTY_STORAGE__BACKEND=sqlite.
const EnvPrefix = "DUTY_"

// Config holds all the configuration settings for the application.
type Config struct {
	Port      int                `json:"port"`
	Env       Environment        `json:"env"`
	ApiKeys   []string           `json:"api_keys"`
	RateLimit int                `json:"rate_limit"`
	Verbose   bool               `json:"verbose"`
	Storage   StorageConfig      `json:"storage"`
	Schedule  ScheduleConfig     `json:"schedule"`
	Duty      DutySettingsConfig `json:"duty"`
}

// StorageConfig selects where the editor snapshot is kept.
type StorageConfig struct {
	// Backend is "memory", "sqlite" or "disk".
	Backend string `json:"backend"`
	// Path is the sqlite database file or the disk store directory.
	Path string `json:"path"`
}

func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = persistence.BackendMemory
	}
	if c.Path == "" {
		switch c.Backend {
		case persistence.BackendSQLite:
			c.Path = "duties.db"
		case persistence.BackendDisk:
			c.Path = "duty-snapshots"
		}
	}
}

func (c StorageConfig) Validate() error {
	switch c.Backend {
	case persistence.BackendMemory:
		return nil
	case persistence.BackendSQLite, persistence.BackendDisk:
		if c.Path == "" {
			return fmt.Errorf("storage path is required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend %s", c.Backend)
	}
}

// ScheduleConfig names the source of block rows: a blocks CSV or a static GTFS feed (file or URL).
type ScheduleConfig struct {
	BlocksCSV string `json:"blocks_csv"`
	GtfsPath  string `json:"gtfs_path"`
	GtfsURL   string `json:"gtfs_url"`
	// ServiceID keeps only trips of one GTFS service; empty keeps all.
	ServiceID string `json:"service_id"`
	// RefreshMinutes reloads a remote GTFS feed this often; 0 disables reloading.
	RefreshMinutes int `json:"refresh_minutes"`
}

// GtfsSource returns the configured feed location, preferring the local path.
func (c ScheduleConfig) GtfsSource() string {
	if c.GtfsPath != "" {
		return c.GtfsPath
	}
	return c.GtfsURL
}

func (c ScheduleConfig) Validate() error {
	set := 0
	for _, v := range []string{c.BlocksCSV, c.GtfsPath, c.GtfsURL} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return errors.New("only one of schedule.blocks_csv, schedule.gtfs_path and schedule.gtfs_url may be set")
	}
	if c.RefreshMinutes < 0 {
		return errors.New("schedule.refresh_minutes must not be negative")
	}
	return nil
}

// DutySettingsConfig holds the initial labor thresholds.
type DutySettingsConfig struct {
	MaxContinuousMinutes    float64 `json:"max_continuous_minutes"`
	MinBreakMinutes         float64 `json:"min_break_minutes"`
	MaxDailyMinutes         float64 `json:"max_daily_minutes"`
	UndoStackLimit          int     `json:"undo_stack_limit"`
	MaxUnassignedPercentage float64 `json:"max_unassigned_percentage"`
	MaxNightShiftVariance   float64 `json:"max_night_shift_variance"`
}

func DefaultDutySettings() DutySettingsConfig {
	d := duty.DefaultSettings()
	return DutySettingsConfig{
		MaxContinuousMinutes:    d.MaxContinuousMinutes,
		MinBreakMinutes:         d.MinBreakMinutes,
		MaxDailyMinutes:         d.MaxDailyMinutes,
		UndoStackLimit:          d.UndoStackLimit,
		MaxUnassignedPercentage: d.MaxUnassignedPercentage,
		MaxNightShiftVariance:   d.MaxNightShiftVariance,
	}
}

func (c DutySettingsConfig) Settings() duty.Settings {
	return duty.Settings{
		MaxContinuousMinutes:    c.MaxContinuousMinutes,
		MinBreakMinutes:         c.MinBreakMinutes,
		MaxDailyMinutes:         c.MaxDailyMinutes,
		UndoStackLimit:          c.UndoStackLimit,
		MaxUnassignedPercentage: c.MaxUnassignedPercentage,
		MaxNightShiftVariance:   c.MaxNightShiftVariance,
	}.Sanitize()
}

func (c DutySettingsConfig) Validate() error {
	switch {
	case c.MaxContinuousMinutes <= 0:
		return errors.New("duty.max_continuous_minutes must be positive")
	case c.MinBreakMinutes < 0:
		return errors.New("duty.min_break_minutes must not be negative")
	case c.MaxDailyMinutes <= 0:
		return errors.New("duty.max_daily_minutes must be positive")
	case c.UndoStackLimit < 0:
		return errors.New("duty.undo_stack_limit must not be negative")
	}
	return nil
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:      4000,
		Env:       Development,
		RateLimit: 100,
		Storage:   StorageConfig{Backend: persistence.BackendMemory},
		Duty:      DefaultDutySettings(),
	}
}

// Load reads the YAML or JSON file at path on top of the defaults, then applies DUTY_ environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment overrides: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults normalizes values that may have been cleared or written loosely.
func (c *Config) SetDefaults() {
	c.Env = EnvFlagToEnvironment(string(c.Env))
	c.ApiKeys = SplitAPIKeys(strings.Join(c.ApiKeys, ","))
	if len(c.ApiKeys) == 0 {
		c.ApiKeys = []string{"test"}
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 100
	}
	c.Storage.SetDefaults()
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	return c.Duty.Validate()
}

// SplitAPIKeys parses a comma separated key list, dropping blanks.
func SplitAPIKeys(value string) []string {
	keys := []string{}
	for _, key := range strings.Split(value, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
