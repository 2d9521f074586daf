package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is used when neither an argument nor LABBOOK_CONFIG_PATH is set.
	DefaultPath = "configs/config.yaml"
	PathEnv     = "LABBOOK_CONFIG_PATH"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Seed       SeedConfig       `yaml:"seed"`
	Log        LogConfig        `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	APIKey         string   `yaml:"api_key"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	RateLimitRPS   int      `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// StoreConfig selects the primary and fallback booking stores.
type StoreConfig struct {
	Primary                 string `yaml:"primary"`  // postgres | sqlite
	Fallback                string `yaml:"fallback"` // redis | sqlite | none
	RecoveryIntervalSeconds int    `yaml:"recovery_interval_seconds"`
}

type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type MonitoringConfig struct {
	HealthCheckPort   int  `yaml:"health_check_port"`
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type CalendarConfig struct {
	Timezone string `yaml:"timezone"`
	Workers  int    `yaml:"workers"`
}

type SeedConfig struct {
	DefaultAssets bool `yaml:"default_assets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads the YAML config at path, expanding ${ENV_VAR} placeholders.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.usesSQLite() {
		if err = os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = 15
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if c.Store.Primary == "" {
		c.Store.Primary = "sqlite"
	}
	if c.Store.Fallback == "" {
		c.Store.Fallback = "none"
	}
	if c.Store.RecoveryIntervalSeconds <= 0 {
		c.Store.RecoveryIntervalSeconds = 60
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "data/labbook.db"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "labbook"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Calendar.Workers <= 0 {
		c.Calendar.Workers = 4
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks store selection and the fields each selected store needs.
func (c *Config) Validate() error {
	switch c.Store.Primary {
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required when store.primary is postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown store.primary %q", c.Store.Primary)
	}

	switch c.Store.Fallback {
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when store.fallback is redis")
		}
	case "sqlite":
		if c.Store.Primary == "sqlite" {
			return fmt.Errorf("store.fallback cannot be sqlite when store.primary is sqlite")
		}
	case "none":
	default:
		return fmt.Errorf("unknown store.fallback %q", c.Store.Fallback)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}
	return nil
}

func (c *Config) usesSQLite() bool {
	return c.Store.Primary == "sqlite" || c.Store.Fallback == "sqlite"
}

// Location is the zone wall-clock slot times are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Calendar.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Calendar.Timezone)
}

func (c *Config) RecoveryInterval() time.Duration {
	return time.Duration(c.Store.RecoveryIntervalSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Interval is the time between scheduled backups, one day when unset.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}
