package handler

import (
	"net/http"

	"github.com/alanyoungcy/arblens/internal/dashboard"
)

// NavHandler serves the navigation tabs.
type NavHandler struct{}

// NewNavHandler creates a NavHandler.
func NewNavHandler() *NavHandler { return &NavHandler{} }

// GetNav resolves every tab against the path query parameter.
// GET /api/nav?path=/market-pair-management
func (h *NavHandler) GetNav(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tabs": dashboard.Nav(r.URL.Query().Get("path"))})
}
