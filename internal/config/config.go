// Package config defines the top-level configuration for the arblens service
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBLENS_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Export    ExportConfig    `toml:"export"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Simulator SimulatorConfig `toml:"simulator"`
	Detector  DetectorConfig  `toml:"detector"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards every /api route except health when non-empty.
	APIKey string `toml:"api_key"`
	// RateLimit is the number of requests per RateWindow allowed per client
	// address. Enforced only when Redis is enabled.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `toml:"driver"`
	// Seed loads the built-in pair dataset into an empty store at startup.
	Seed bool `toml:"seed"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When disabled, the pair
// cache, lock and rate limiter are skipped and the signal bus runs in
// process.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	PairTTL    duration `toml:"pair_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ExportConfig controls snapshot exports to object storage.
type ExportConfig struct {
	Enabled bool `toml:"enabled"`
	// Cron is a six-field (seconds first) cron expression.
	Cron   string `toml:"cron"`
	Prefix string `toml:"prefix"`
}

// DashboardConfig holds the management session parameters.
type DashboardConfig struct {
	// Role is "admin" or "user"; only admins may edit system parameters or
	// trigger exports.
	Role             string   `toml:"role"`
	BulkLatency      duration `toml:"bulk_latency"`
	ParamsLatency    duration `toml:"params_latency"`
	MaxNotifications int      `toml:"max_notifications"`
	DefaultAutoClose duration `toml:"default_auto_close"`
}

// SimulatorConfig controls the synthetic opportunity feed.
type SimulatorConfig struct {
	Enabled     bool     `toml:"enabled"`
	Interval    duration `toml:"interval"`
	Probability float64  `toml:"probability"`
}

// DetectorConfig controls the cross-venue spread detector.
type DetectorConfig struct {
	Enabled        bool     `toml:"enabled"`
	Interval       duration `toml:"interval"`
	MinConfidence  int      `toml:"min_confidence"`
	MinSpreadBps   float64  `toml:"min_spread_bps"`
	EstFeeBps      float64  `toml:"est_fee_bps"`
	EstSlippageBps float64  `toml:"est_slippage_bps"`
	DedupTTL       duration `toml:"dedup_ttl"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Storage: StorageConfig{
			Driver: "memory",
			Seed:   true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arblens",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "arblens:",
			PairTTL:    duration{5 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arblens-exports",
			ForcePathStyle: true,
		},
		Export: ExportConfig{
			Enabled: false,
			Cron:    "0 0 3 * * *",
			Prefix:  "snapshots",
		},
		Dashboard: DashboardConfig{
			Role:             "admin",
			BulkLatency:      duration{time.Second},
			ParamsLatency:    duration{1500 * time.Millisecond},
			MaxNotifications: 50,
			DefaultAutoClose: duration{5 * time.Second},
		},
		Simulator: SimulatorConfig{
			Enabled:     true,
			Interval:    duration{30 * time.Second},
			Probability: 0.3,
		},
		Detector: DetectorConfig{
			Enabled:        true,
			Interval:       duration{time.Minute},
			MinConfidence:  90,
			MinSpreadBps:   500,
			EstFeeBps:      200,
			EstSlippageBps: 50,
			DedupTTL:       duration{15 * time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "error"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"seed":   true,
	"export": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, seed, export)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Storage
	switch c.Storage.Driver {
	case "memory":
		if mode == "seed" {
			errs = append(errs, "storage: mode seed requires driver postgres")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: memory, postgres)", c.Storage.Driver))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Export / S3
	if c.Export.Enabled || mode == "export" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when export is used")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when export is used")
		}
	}
	if c.Export.Enabled && strings.TrimSpace(c.Export.Cron) == "" {
		errs = append(errs, "export: cron must not be empty when enabled")
	}

	// Dashboard
	if c.Dashboard.Role != "admin" && c.Dashboard.Role != "user" {
		errs = append(errs, fmt.Sprintf("dashboard: role must be admin or user, got %q", c.Dashboard.Role))
	}
	if c.Dashboard.BulkLatency.Duration < 0 || c.Dashboard.ParamsLatency.Duration < 0 {
		errs = append(errs, "dashboard: latencies must not be negative")
	}
	if c.Dashboard.MaxNotifications < 0 {
		errs = append(errs, "dashboard: max_notifications must be >= 0")
	}
	if c.Dashboard.DefaultAutoClose.Duration <= 0 {
		errs = append(errs, "dashboard: default_auto_close must be > 0")
	}

	// Simulator
	if c.Simulator.Enabled {
		if c.Simulator.Interval.Duration <= 0 {
			errs = append(errs, "simulator: interval must be > 0 when enabled")
		}
		if c.Simulator.Probability < 0 || c.Simulator.Probability > 1 {
			errs = append(errs, fmt.Sprintf("simulator: probability must be 0-1, got %g", c.Simulator.Probability))
		}
	}

	// Detector
	if c.Detector.Enabled {
		if c.Detector.Interval.Duration <= 0 {
			errs = append(errs, "detector: interval must be > 0 when enabled")
		}
		if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 100 {
			errs = append(errs, fmt.Sprintf("detector: min_confidence must be 0-100, got %d", c.Detector.MinConfidence))
		}
		if c.Detector.MinSpreadBps < 0 || c.Detector.EstFeeBps < 0 || c.Detector.EstSlippageBps < 0 {
			errs = append(errs, "detector: bps values must not be negative")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
