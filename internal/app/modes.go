package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arblens/internal/arbitrage"
	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/notify"
	"github.com/alanyoungcy/arblens/internal/server"
	"github.com/alanyoungcy/arblens/internal/server/handler"
	"github.com/alanyoungcy/arblens/internal/server/ws"
	"github.com/alanyoungcy/arblens/internal/service"
)

// ServerMode runs the HTTP API, the WebSocket hub, the dashboard session,
// the notification pipeline and, when enabled, the opportunity simulator, the
// spread detector and scheduled exports. It blocks until ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	// Services.
	pairSvc := service.NewPairService(
		deps.PairStore, deps.AuditStore, deps.PairCache, deps.LockManager, deps.SignalBus,
		service.PairServiceConfig{Latency: a.cfg.Dashboard.BulkLatency.Duration},
		a.logger,
	)
	paramSvc := service.NewParameterService(
		deps.ParamStore, deps.AuditStore, deps.SignalBus,
		a.cfg.Dashboard.ParamsLatency.Duration, a.logger,
	)
	auditSvc := service.NewAuditService(deps.AuditStore)

	// Notification queue and its listeners.
	queue := notify.NewQueue(a.logger,
		notify.WithDefaultAutoClose(a.cfg.Dashboard.DefaultAutoClose.Duration),
		notify.WithMaxLen(a.cfg.Dashboard.MaxNotifications),
	)
	a.closers = append(a.closers, queue.Close)
	queue.Subscribe(notify.BusListener(ctx, deps.SignalBus, a.logger))
	if deps.Notifier.Enabled() {
		queue.Subscribe(deps.Notifier.Listener(ctx))
	}

	// Dashboard session.
	role := dashboard.ParseRole(a.cfg.Dashboard.Role)
	ctrl := dashboard.NewController(pairSvc, paramSvc, queue, role, a.logger)
	if err := ctrl.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "initial dashboard load failed",
			slog.String("error", err.Error()),
		)
	}
	g.Go(func() error {
		return ctrl.Watch(ctx, deps.SignalBus)
	})

	// Opportunity sources.
	g.Go(func() error {
		return notify.RelayOpportunities(ctx, deps.SignalBus, queue, a.logger)
	})
	if a.cfg.Simulator.Enabled {
		sim := notify.NewSimulator(queue, a.cfg.Simulator.Interval.Duration, a.cfg.Simulator.Probability, nil, a.logger)
		g.Go(func() error {
			return sim.Run(ctx)
		})
	}

	if a.cfg.Detector.Enabled {
		dc := a.cfg.Detector
		detector := arbitrage.NewDetector(arbitrage.DetectorConfig{
			Strategy: arbitrage.NewSpread(arbitrage.SpreadConfig{
				MinConfidence:  dc.MinConfidence,
				MinSpreadBps:   dc.MinSpreadBps,
				EstFeeBps:      dc.EstFeeBps,
				EstSlippageBps: dc.EstSlippageBps,
			}, a.logger),
			Pairs:    deps.PairStore,
			Bus:      deps.SignalBus,
			Interval: dc.Interval.Duration,
			DedupTTL: dc.DedupTTL.Duration,
			Logger:   a.logger,
		})
		g.Go(func() error {
			return detector.Run(ctx)
		})
	}

	// Scheduled exports.
	if a.cfg.Export.Enabled && deps.Exporter != nil {
		g.Go(func() error {
			return deps.Exporter.RunCron(ctx, a.cfg.Export.Cron)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, handlerSet{
			pairs:  pairSvc,
			params: paramSvc,
			audit:  auditSvc,
			ctrl:   ctrl,
		})
	}

	a.logger.InfoContext(ctx, "server mode running")
	return g.Wait()
}

// SeedMode loads the built-in dataset into the configured store and exits.
// Pairs that already exist are left untouched.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting seed mode")

	n, err := insertSeed(ctx, deps.PairStore)
	if err != nil {
		return fmt.Errorf("app: seed: %w", err)
	}
	if deps.AuditStore != nil {
		if err := deps.AuditStore.Log(ctx, "pairs_seeded", map[string]any{"inserted": n}); err != nil {
			a.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	a.logger.InfoContext(ctx, "seed complete", slog.Int("inserted", n))
	return nil
}

// ExportMode writes one snapshot to object storage and exits.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting export mode")
	if deps.Exporter == nil {
		return errors.New("app: export: object storage not configured")
	}
	res, err := deps.Exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("app: export: %w", err)
	}
	a.logger.InfoContext(ctx, "export complete",
		slog.String("run_id", res.RunID),
		slog.Int("pairs", res.Pairs),
		slog.Int("audit", res.AuditRows),
	)
	return nil
}

// handlerSet carries the services built by ServerMode into the HTTP layer.
type handlerSet struct {
	pairs  *service.PairService
	params *service.ParameterService
	audit  *service.AuditService
	ctrl   *dashboard.Controller
}

// startHTTPServer builds the API server and the WebSocket hub and registers
// them with g. The server shuts down when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hs handlerSet) {
	status := domain.ServiceStatus{
		Mode:          a.cfg.Mode,
		StorageDriver: a.cfg.Storage.Driver,
		RedisEnabled:  a.cfg.Redis.Enabled,
		ExportEnabled: deps.Exporter != nil,
		Role:          a.cfg.Dashboard.Role,
		StartedAt:     time.Now().UTC(),
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Status: func() domain.ServiceStatus {
			s := status
			s.UptimeSeconds = int64(time.Since(s.StartedAt).Seconds())
			return s
		},
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// A nil *Exporter must reach the handler as a nil interface.
	var exporter handler.Exporter
	if deps.Exporter != nil {
		exporter = deps.Exporter
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		Admin:       dashboard.ParseRole(a.cfg.Dashboard.Role) == dashboard.RoleAdmin,
		RateLimiter: deps.RateLimiter,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:    handler.NewStatusHandler(status, hs.pairs, a.logger),
		Nav:       handler.NewNavHandler(),
		Pairs:     handler.NewPairHandler(hs.pairs, a.logger),
		Params:    handler.NewParameterHandler(hs.params, a.logger),
		Audit:     handler.NewAuditHandler(hs.audit, a.logger),
		Export:    handler.NewExportHandler(exporter, a.logger),
		Dashboard: handler.NewDashboardHandler(hs.ctrl, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
