package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// PairCounter counts stored pairs.
type PairCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StatusHandler serves the service status for the dashboard.
type StatusHandler struct {
	base   domain.ServiceStatus
	pairs  PairCounter
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler. base carries the static fields;
// uptime and the pair count are filled in per request.
func NewStatusHandler(base domain.ServiceStatus, pairs PairCounter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{base: base, pairs: pairs, logger: logHandler(logger, "status")}
}

// GetStatus responds with the current service status.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.base
	st.UptimeSeconds = int64(time.Since(st.StartedAt).Seconds())
	if n, err := h.pairs.Count(r.Context()); err == nil {
		st.Pairs = n
	} else {
		h.logger.WarnContext(r.Context(), "count pairs failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, st)
}
