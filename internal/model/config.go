package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Realtime driver names.
const (
	RealtimePostgres = "postgres"
	RealtimeRedis    = "redis"
	RealtimeNone     = "none"
)

// DatabaseConfig holds the local SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BackendConfig holds the connection to the hosted backend database.
type BackendConfig struct {
	// DSN is the Postgres connection string. When empty the keyring
	// entry "backend-dsn" is used.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// RealtimeConfig selects and configures the change feed.
type RealtimeConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// ScannerConfig controls the periodic reminder scanners.
type ScannerConfig struct {
	IntervalSec      int    `mapstructure:"interval_sec" yaml:"interval_sec"`
	InitialDelaySec  int    `mapstructure:"initial_delay_sec" yaml:"initial_delay_sec"`
	MeetingLeadMin   int    `mapstructure:"meeting_lead_min" yaml:"meeting_lead_min"`
	DailySummaryHour int    `mapstructure:"daily_summary_hour" yaml:"daily_summary_hour"`
	Timezone         string `mapstructure:"timezone" yaml:"timezone"`
}

// LedgerConfig holds the dedup ledger windows.
type LedgerConfig struct {
	Cooldown  time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
}

// QueueConfig holds the dispatch pacing bounds.
type QueueConfig struct {
	MinDelayMs int `mapstructure:"min_delay_ms" yaml:"min_delay_ms"`
	MaxDelayMs int `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`
}

// WebPushConfig holds the VAPID identity used for browser push.
type WebPushConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Subscriber string `mapstructure:"subscriber" yaml:"subscriber"`
	PublicKey  string `mapstructure:"public_key" yaml:"public_key"`
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"`
}

// NotifierConfig selects the OS-level notification sinks.
type NotifierConfig struct {
	DBus    bool          `mapstructure:"dbus" yaml:"dbus"`
	WebPush WebPushConfig `mapstructure:"webpush" yaml:"webpush"`
}

// HTTPConfig holds the local API listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	UserID   string         `mapstructure:"user_id" yaml:"user_id"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Backend  BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
	Scanner  ScannerConfig  `mapstructure:"scanner" yaml:"scanner"`
	Ledger   LedgerConfig   `mapstructure:"ledger" yaml:"ledger"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Notifier NotifierConfig `mapstructure:"notifier" yaml:"notifier"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ScanInterval returns the scanner tick interval.
func (c *AppConfig) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSec) * time.Second
}

// ScanInitialDelay returns the delay before the first scan.
func (c *AppConfig) ScanInitialDelay() time.Duration {
	return time.Duration(c.Scanner.InitialDelaySec) * time.Second
}

// MeetingLead returns how far ahead of a meeting its reminder fires.
func (c *AppConfig) MeetingLead() time.Duration {
	return time.Duration(c.Scanner.MeetingLeadMin) * time.Minute
}

// Location resolves the configured timezone, falling back to local time.
func (c *AppConfig) Location() *time.Location {
	if c.Scanner.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Scanner.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/deskalert/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "deskalert", "config.yaml")
}

// defaultDatabasePath returns ~/.config/deskalert/deskalert.db.
func defaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "deskalert.db")
}

// setDefaults registers a default for every known key so that missing
// keys and environment overrides resolve.
func setDefaults(v *viper.Viper) {
	v.SetDefault("user_id", "")
	v.SetDefault("database.path", defaultDatabasePath())
	v.SetDefault("backend.dsn", "")
	v.SetDefault("realtime.driver", RealtimePostgres)
	v.SetDefault("realtime.redis_addr", "localhost:6379")
	v.SetDefault("realtime.redis_password", "")
	v.SetDefault("realtime.redis_db", 0)
	v.SetDefault("scanner.interval_sec", 60)
	v.SetDefault("scanner.initial_delay_sec", 3)
	v.SetDefault("scanner.meeting_lead_min", 15)
	v.SetDefault("scanner.daily_summary_hour", 9)
	v.SetDefault("scanner.timezone", "")
	v.SetDefault("ledger.cooldown", 4*time.Hour)
	v.SetDefault("ledger.retention", 24*time.Hour)
	v.SetDefault("queue.min_delay_ms", 500)
	v.SetDefault("queue.max_delay_ms", 1000)
	v.SetDefault("notifier.dbus", true)
	v.SetDefault("notifier.webpush.enabled", false)
	v.SetDefault("notifier.webpush.subscriber", "")
	v.SetDefault("notifier.webpush.public_key", "")
	v.SetDefault("notifier.webpush.private_key", "")
	v.SetDefault("http.addr", "localhost:7207")
	v.SetDefault("log.level", "INFO")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: defaultDatabasePath()},
		Realtime: RealtimeConfig{
			Driver:    RealtimePostgres,
			RedisAddr: "localhost:6379",
		},
		Scanner: ScannerConfig{
			IntervalSec:      60,
			InitialDelaySec:  3,
			MeetingLeadMin:   15,
			DailySummaryHour: 9,
		},
		Ledger: LedgerConfig{
			Cooldown:  4 * time.Hour,
			Retention: 24 * time.Hour,
		},
		Queue: QueueConfig{
			MinDelayMs: 500,
			MaxDelayMs: 1000,
		},
		Notifier: NotifierConfig{DBus: true},
		HTTP:     HTTPConfig{Addr: "localhost:7207"},
		Log:      LogConfig{Level: "INFO"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with DESKALERT_ override file values, e.g.
// DESKALERT_BACKEND_DSN. If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("deskalert")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, missingFile := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !missingFile && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges that would otherwise break the pipeline.
func (c *AppConfig) Validate() error {
	if c.Scanner.IntervalSec <= 0 {
		return fmt.Errorf("scanner.interval_sec must be positive, got %d", c.Scanner.IntervalSec)
	}
	if c.Scanner.InitialDelaySec < 0 {
		return fmt.Errorf("scanner.initial_delay_sec must not be negative, got %d", c.Scanner.InitialDelaySec)
	}
	if c.Scanner.DailySummaryHour < 0 || c.Scanner.DailySummaryHour > 23 {
		return fmt.Errorf("scanner.daily_summary_hour must be 0-23, got %d", c.Scanner.DailySummaryHour)
	}
	if c.Ledger.Cooldown <= 0 || c.Ledger.Retention < c.Ledger.Cooldown {
		return fmt.Errorf("ledger windows invalid: cooldown %s, retention %s",
			c.Ledger.Cooldown, c.Ledger.Retention)
	}
	if c.Queue.MinDelayMs < 0 || c.Queue.MaxDelayMs < c.Queue.MinDelayMs {
		return fmt.Errorf("queue delays invalid: min %dms, max %dms",
			c.Queue.MinDelayMs, c.Queue.MaxDelayMs)
	}
	switch c.Realtime.Driver {
	case RealtimePostgres, RealtimeRedis, RealtimeNone:
	default:
		return fmt.Errorf("unknown realtime.driver %q", c.Realtime.Driver)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("user_id", cfg.UserID)
	v.Set("database", cfg.Database)
	v.Set("backend", cfg.Backend)
	v.Set("realtime", cfg.Realtime)
	v.Set("scanner", cfg.Scanner)
	v.Set("ledger", map[string]string{
		"cooldown":  cfg.Ledger.Cooldown.String(),
		"retention": cfg.Ledger.Retention.String(),
	})
	v.Set("queue", cfg.Queue)
	v.Set("notifier", cfg.Notifier)
	v.Set("http", cfg.HTTP)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
