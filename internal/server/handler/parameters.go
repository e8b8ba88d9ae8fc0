package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// ParameterService defines the methods that the parameter handler requires.
type ParameterService interface {
	Get(ctx context.Context) (domain.SystemParameters, error)
	Update(ctx context.Context, params domain.SystemParameters) (domain.SystemParameters, error)
}

// ParameterHandler serves the system parameter endpoints.
type ParameterHandler struct {
	params ParameterService
	logger *slog.Logger
}

// NewParameterHandler creates a ParameterHandler.
func NewParameterHandler(params ParameterService, logger *slog.Logger) *ParameterHandler {
	return &ParameterHandler{params: params, logger: logHandler(logger, "parameters")}
}

// GetParameters returns the current system parameters.
// GET /api/parameters
func (h *ParameterHandler) GetParameters(w http.ResponseWriter, r *http.Request) {
	p, err := h.params.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get parameters")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateParameters validates and replaces the system parameters.
// PUT /api/parameters
func (h *ParameterHandler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	var p domain.SystemParameters
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.params.Update(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update parameters")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
