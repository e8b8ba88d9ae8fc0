package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Exporter writes and lists snapshot exports.
type Exporter interface {
	Export(ctx context.Context) (domain.ExportResult, error)
	List(ctx context.Context) ([]domain.BlobInfo, error)
}

// ExportHandler serves the snapshot export endpoints. A nil exporter means
// object storage is not configured.
type ExportHandler struct {
	exporter Exporter
	logger   *slog.Logger
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(exporter Exporter, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, logger: logHandler(logger, "export")}
}

// TriggerExport runs one snapshot export.
// POST /api/export
func (h *ExportHandler) TriggerExport(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}
	res, err := h.exporter.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "export failed")
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// ListExports returns the objects written by previous exports.
// GET /api/exports
func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}
	infos, err := h.exporter.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list exports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": infos})
}
