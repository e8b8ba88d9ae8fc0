// Package app wires the arblens service together and runs it in the
// configured mode: server (API, dashboard session, notifications, detector),
// seed (load the demo dataset into postgres) or export (one snapshot to S3).
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alanyoungcy/arblens/internal/config"
)

// App owns the configuration, the logger and the cleanup functions
// registered while wiring.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	closeOnce sync.Once
	closers   []func()
}

// New creates an App.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

type modeFunc func(*App, context.Context, *Dependencies) error

var modes = map[string]modeFunc{
	"server": (*App).ServerMode,
	"seed":   (*App).SeedMode,
	"export": (*App).ExportMode,
}

// Run wires dependencies and runs the configured mode. Server mode blocks
// until ctx is cancelled; seed and export return when done.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(a.cfg.Mode)
	run, ok := modes[mode]
	if !ok {
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	a.logger.InfoContext(ctx, "starting arblens",
		slog.String("mode", mode),
		slog.String("storage", a.cfg.Storage.Driver),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.String("role", a.cfg.Dashboard.Role),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	return run(a, ctx, deps)
}

// Close runs the registered cleanups in reverse order. Only the first call
// has any effect.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.logger.Info("shutting down")
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		a.closers = nil
	})
}
