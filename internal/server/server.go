// Package server is the HTTP + WebSocket API of the arblens service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/server/handler"
	"github.com/alanyoungcy/arblens/internal/server/middleware"
	"github.com/alanyoungcy/arblens/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// Admin enables the parameter and export write routes.
	Admin bool
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter domain.RateLimiter
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Status    *handler.StatusHandler
	Nav       *handler.NavHandler
	Pairs     *handler.PairHandler
	Params    *handler.ParameterHandler
	Audit     *handler.AuditHandler
	Export    *handler.ExportHandler
	Dashboard *handler.DashboardHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

const healthPath = "/api/health"

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, h Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()
	admin := middleware.AdminOnly(cfg.Admin)

	// --- Register routes ---

	mux.HandleFunc("GET "+healthPath, h.Health.Health)
	mux.HandleFunc("GET /api/status", h.Status.GetStatus)
	mux.HandleFunc("GET /api/nav", h.Nav.GetNav)

	// Pairs.
	mux.HandleFunc("GET /api/pairs", h.Pairs.ListPairs)
	mux.HandleFunc("POST /api/pairs", h.Pairs.CreatePair)
	mux.HandleFunc("POST /api/pairs/bulk", h.Pairs.BulkApply)
	mux.HandleFunc("GET /api/pairs/{id}", h.Pairs.GetPair)
	mux.HandleFunc("POST /api/pairs/{id}/override", h.Pairs.OverridePair)

	// System parameters, audit log and exports.
	mux.HandleFunc("GET /api/parameters", h.Params.GetParameters)
	mux.HandleFunc("PUT /api/parameters", admin(h.Params.UpdateParameters))
	mux.HandleFunc("GET /api/audit", h.Audit.ListAudit)
	mux.HandleFunc("POST /api/export", admin(h.Export.TriggerExport))
	mux.HandleFunc("GET /api/exports", h.Export.ListExports)

	// Dashboard session.
	d := h.Dashboard
	mux.HandleFunc("GET /api/dashboard", d.GetSnapshot)
	mux.HandleFunc("POST /api/dashboard/refresh", d.Refresh)
	mux.HandleFunc("PUT /api/dashboard/filters", d.SetFilters)
	mux.HandleFunc("DELETE /api/dashboard/filters", d.ResetFilters)
	mux.HandleFunc("PUT /api/dashboard/search", d.SetSearch)
	mux.HandleFunc("POST /api/dashboard/sort/{key}", d.ToggleSort)
	mux.HandleFunc("POST /api/dashboard/select/{id}", d.SelectPair)
	mux.HandleFunc("POST /api/dashboard/details/toggle", d.ToggleDetails)
	mux.HandleFunc("POST /api/dashboard/selection/all", d.SelectAll)
	mux.HandleFunc("POST /api/dashboard/selection/{id}", d.ToggleRow)
	mux.HandleFunc("DELETE /api/dashboard/selection", d.ClearSelection)
	mux.HandleFunc("POST /api/dashboard/bulk", d.RequestBulk)
	mux.HandleFunc("PUT /api/dashboard/bulk/reason", d.SetBulkReason)
	mux.HandleFunc("POST /api/dashboard/bulk/confirm", d.ConfirmBulk)
	mux.HandleFunc("DELETE /api/dashboard/bulk", d.CloseBulk)
	mux.HandleFunc("POST /api/dashboard/detail/edit", d.BeginDetailEdit)
	mux.HandleFunc("PUT /api/dashboard/detail/draft", d.SetDetailDraft)
	mux.HandleFunc("POST /api/dashboard/detail/save", d.SaveDetail)
	mux.HandleFunc("DELETE /api/dashboard/detail/edit", d.CancelDetailEdit)
	mux.HandleFunc("POST /api/dashboard/params/toggle", d.ToggleParams)
	mux.HandleFunc("POST /api/dashboard/params/edit", d.BeginParamsEdit)
	mux.HandleFunc("PUT /api/dashboard/params/draft", d.SetParamsDraft)
	mux.HandleFunc("POST /api/dashboard/params/reset", d.ResetParamsDraft)
	mux.HandleFunc("POST /api/dashboard/params/save", d.SaveParams)
	mux.HandleFunc("DELETE /api/dashboard/params/edit", d.CancelParamsEdit)

	// Notifications.
	mux.HandleFunc("GET /api/notifications", d.ListNotifications)
	mux.HandleFunc("DELETE /api/notifications/{id}", d.DismissNotification)
	mux.HandleFunc("POST /api/notifications/{id}/action", d.NotificationAction)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var root http.Handler = mux

	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		root = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateWindow, logger, healthPath)(root)
	}
	root = middleware.Auth(cfg.APIKey, healthPath)(root)
	root = middleware.Logging(logger, healthPath, "/api/dashboard", "/api/notifications")(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    root,
		logger:     logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
