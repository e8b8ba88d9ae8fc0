package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBLENS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBLENS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBLENS_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBLENS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBLENS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBLENS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ARBLENS_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "ARBLENS_SERVER_RATE_WINDOW")

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "ARBLENS_STORAGE_DRIVER")
	setBool(&cfg.Storage.Seed, "ARBLENS_STORAGE_SEED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBLENS_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ARBLENS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBLENS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBLENS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBLENS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBLENS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBLENS_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBLENS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBLENS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBLENS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBLENS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBLENS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBLENS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBLENS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBLENS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBLENS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBLENS_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "ARBLENS_REDIS_KEY_PREFIX")
	setDuration(&cfg.Redis.PairTTL, "ARBLENS_REDIS_PAIR_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ARBLENS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBLENS_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBLENS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBLENS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBLENS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBLENS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBLENS_S3_FORCE_PATH_STYLE")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "ARBLENS_EXPORT_ENABLED")
	setStr(&cfg.Export.Cron, "ARBLENS_EXPORT_CRON")
	setStr(&cfg.Export.Prefix, "ARBLENS_EXPORT_PREFIX")

	// ── Dashboard ──
	setStr(&cfg.Dashboard.Role, "ARBLENS_DASHBOARD_ROLE")
	setDuration(&cfg.Dashboard.BulkLatency, "ARBLENS_DASHBOARD_BULK_LATENCY")
	setDuration(&cfg.Dashboard.ParamsLatency, "ARBLENS_DASHBOARD_PARAMS_LATENCY")
	setInt(&cfg.Dashboard.MaxNotifications, "ARBLENS_DASHBOARD_MAX_NOTIFICATIONS")
	setDuration(&cfg.Dashboard.DefaultAutoClose, "ARBLENS_DASHBOARD_DEFAULT_AUTO_CLOSE")

	// ── Simulator ──
	setBool(&cfg.Simulator.Enabled, "ARBLENS_SIMULATOR_ENABLED")
	setDuration(&cfg.Simulator.Interval, "ARBLENS_SIMULATOR_INTERVAL")
	setFloat64(&cfg.Simulator.Probability, "ARBLENS_SIMULATOR_PROBABILITY")

	// ── Detector ──
	setBool(&cfg.Detector.Enabled, "ARBLENS_DETECTOR_ENABLED")
	setDuration(&cfg.Detector.Interval, "ARBLENS_DETECTOR_INTERVAL")
	setInt(&cfg.Detector.MinConfidence, "ARBLENS_DETECTOR_MIN_CONFIDENCE")
	setFloat64(&cfg.Detector.MinSpreadBps, "ARBLENS_DETECTOR_MIN_SPREAD_BPS")
	setFloat64(&cfg.Detector.EstFeeBps, "ARBLENS_DETECTOR_EST_FEE_BPS")
	setFloat64(&cfg.Detector.EstSlippageBps, "ARBLENS_DETECTOR_EST_SLIPPAGE_BPS")
	setDuration(&cfg.Detector.DedupTTL, "ARBLENS_DETECTOR_DEDUP_TTL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBLENS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBLENS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBLENS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBLENS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBLENS_MODE")
	setStr(&cfg.LogLevel, "ARBLENS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
