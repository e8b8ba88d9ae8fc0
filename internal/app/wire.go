package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/arblens/internal/blob/s3"
	"github.com/alanyoungcy/arblens/internal/cache/memory"
	"github.com/alanyoungcy/arblens/internal/cache/redis"
	"github.com/alanyoungcy/arblens/internal/config"
	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/notify"
	"github.com/alanyoungcy/arblens/internal/server/handler"
	storemem "github.com/alanyoungcy/arblens/internal/store/memory"
	"github.com/alanyoungcy/arblens/internal/store/postgres"
	"github.com/alanyoungcy/arblens/internal/store/seed"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	PairStore  domain.PairStore
	ParamStore domain.ParameterStore
	AuditStore domain.AuditStore

	// Caches. PairCache, LockManager and RateLimiter are nil without Redis.
	PairCache   domain.PairCache
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Exporter is nil unless export is enabled or the mode is export.
	Exporter *s3blob.Exporter

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks backs GET /api/health.
	HealthChecks map[string]handler.HealthCheck
}

// needsS3 reports whether object storage has to be wired.
func needsS3(cfg *config.Config) bool {
	return cfg.Export.Enabled || strings.ToLower(cfg.Mode) == "export"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		HealthChecks: make(map[string]handler.HealthCheck),
	}

	// --- Storage ---
	switch cfg.Storage.Driver {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PairStore = postgres.NewPairStore(pool)
		deps.ParamStore = postgres.NewParameterStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	default:
		deps.PairStore = storemem.NewPairStore()
		deps.ParamStore = storemem.NewParameterStore()
		deps.AuditStore = storemem.NewAuditStore()
	}

	if cfg.Storage.Seed && strings.ToLower(cfg.Mode) == "server" {
		n, err := seedIfEmpty(ctx, deps.PairStore)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: seed: %w", err)
		}
		if n > 0 {
			logger.InfoContext(ctx, "seeded pair store", slog.Int("pairs", n))
		}
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PairCache = redis.NewPairCache(redisClient, cfg.Redis.PairTTL.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient, cfg.Server.RateLimit, cfg.Server.RateWindow.Duration)
		deps.SignalBus = redis.NewSignalBus(redisClient, 10000)
		deps.HealthChecks["redis"] = redisClient.Ping
	} else {
		deps.SignalBus = memory.NewSignalBus()
	}

	// --- S3 blob storage (only when exports are used) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Exporter = s3blob.NewExporter(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			deps.PairStore,
			deps.AuditStore,
			cfg.Export.Prefix,
			logger,
		)
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// seedIfEmpty loads the built-in dataset into store when it holds no pairs.
func seedIfEmpty(ctx context.Context, store domain.PairStore) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	return insertSeed(ctx, store)
}

// insertSeed creates every seed pair, skipping ids that already exist.
func insertSeed(ctx context.Context, store domain.PairStore) (int, error) {
	inserted := 0
	for _, p := range seed.Pairs() {
		err := store.Create(ctx, p)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, domain.ErrAlreadyExists):
		default:
			return inserted, err
		}
	}
	return inserted, nil
}
