package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
)

// DashboardHandler exposes every dashboard intent. Each intent responds with
// the session snapshot taken after it ran.
type DashboardHandler struct {
	ctrl   *dashboard.Controller
	logger *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler around ctrl.
func NewDashboardHandler(ctrl *dashboard.Controller, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{ctrl: ctrl, logger: logHandler(logger, "dashboard")}
}

func (h *DashboardHandler) respond(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if err != nil {
		writeServiceError(w, r, h.logger, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// GetSnapshot returns the full session state.
// GET /api/dashboard
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// Refresh reloads the pair list from the backend.
// POST /api/dashboard/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.Refresh(r.Context()), "refresh failed")
}

// SetFilters replaces the table filters.
// PUT /api/dashboard/filters
func (h *DashboardHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var f domain.FilterState
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, h.ctrl.SetFilters(f), "set filters failed")
}

// ResetFilters restores the neutral filters and clears the search.
// DELETE /api/dashboard/filters
func (h *DashboardHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ResetFilters()
	h.respond(w, r, nil, "")
}

type searchRequest struct {
	Search string `json:"search"`
}

// SetSearch replaces the free-text search.
// PUT /api/dashboard/search
func (h *DashboardHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.ctrl.SetSearch(req.Search)
	h.respond(w, r, nil, "")
}

// ToggleSort clicks a sort header.
// POST /api/dashboard/sort/{key}
func (h *DashboardHandler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	key, err := domain.ParseSortKey(pathParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.ctrl.ToggleSort(key)
	h.respond(w, r, nil, "")
}

// SelectPair shows a pair in the detail panel.
// POST /api/dashboard/select/{id}
func (h *DashboardHandler) SelectPair(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.SelectPair(pathParam(r, "id")), "select pair failed")
}

// ToggleDetails shows or hides the detail panel.
// POST /api/dashboard/details/toggle
func (h *DashboardHandler) ToggleDetails(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ToggleDetails()
	h.respond(w, r, nil, "")
}

// ToggleRow flips one row's checkbox.
// POST /api/dashboard/selection/{id}
func (h *DashboardHandler) ToggleRow(w http.ResponseWriter, r *http.Request) {
	_, err := h.ctrl.ToggleRow(pathParam(r, "id"))
	h.respond(w, r, err, "toggle row failed")
}

// SelectAll toggles the header checkbox over the visible rows.
// POST /api/dashboard/selection/all
func (h *DashboardHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.ctrl.SelectAllVisible()
	h.respond(w, r, nil, "")
}

// ClearSelection unchecks every row.
// DELETE /api/dashboard/selection
func (h *DashboardHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ClearSelection()
	h.respond(w, r, nil, "")
}

type bulkIntentRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

// RequestBulk opens the confirmation dialog. Omitted ids default to the
// current selection.
// POST /api/dashboard/bulk
func (h *DashboardHandler) RequestBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action, err := domain.ParseBulkAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, h.ctrl.RequestBulkAction(action, req.IDs), "open bulk dialog failed")
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// SetBulkReason edits the dialog's reason field.
// PUT /api/dashboard/bulk/reason
func (h *DashboardHandler) SetBulkReason(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, h.ctrl.SetBulkReason(req.Reason), "set reason failed")
}

// ConfirmBulk runs the dialog's action. The request blocks until the backend
// answers; a client disconnect does not abort the action, closing the
// dialog does.
// POST /api/dashboard/bulk/confirm
func (h *DashboardHandler) ConfirmBulk(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	h.respond(w, r, h.ctrl.ConfirmBulkAction(ctx), "bulk action failed")
}

// CloseBulk dismisses the dialog and discards any in-flight result.
// DELETE /api/dashboard/bulk
func (h *DashboardHandler) CloseBulk(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CloseBulkDialog()
	h.respond(w, r, nil, "")
}

// BeginDetailEdit enters override edit mode.
// POST /api/dashboard/detail/edit
func (h *DashboardHandler) BeginDetailEdit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.BeginDetailEdit(), "begin edit failed")
}

type draftRequest struct {
	Confidence *int   `json:"confidence"`
	Reason     string `json:"reason"`
}

// SetDetailDraft edits the override draft. Confidence is clamped to 0-100.
// PUT /api/dashboard/detail/draft
func (h *DashboardHandler) SetDetailDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Confidence == nil {
		writeError(w, http.StatusBadRequest, "confidence is required")
		return
	}
	h.respond(w, r, h.ctrl.SetDetailDraft(*req.Confidence, req.Reason), "set draft failed")
}

// SaveDetail persists the override draft.
// POST /api/dashboard/detail/save
func (h *DashboardHandler) SaveDetail(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.SaveDetail(context.WithoutCancel(r.Context())), "save override failed")
}

// CancelDetailEdit leaves override edit mode without saving.
// DELETE /api/dashboard/detail/edit
func (h *DashboardHandler) CancelDetailEdit(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CancelDetailEdit()
	h.respond(w, r, nil, "")
}

// ToggleParams shows or hides the system parameters panel.
// POST /api/dashboard/params/toggle
func (h *DashboardHandler) ToggleParams(w http.ResponseWriter, r *http.Request) {
	_, err := h.ctrl.ToggleParams()
	h.respond(w, r, err, "toggle parameters failed")
}

// BeginParamsEdit enters parameter edit mode.
// POST /api/dashboard/params/edit
func (h *DashboardHandler) BeginParamsEdit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.BeginParamsEdit(), "begin parameters edit failed")
}

// SetParamsDraft replaces the parameter draft.
// PUT /api/dashboard/params/draft
func (h *DashboardHandler) SetParamsDraft(w http.ResponseWriter, r *http.Request) {
	var p domain.SystemParameters
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, h.ctrl.SetParamsDraft(p), "set parameters draft failed")
}

// ResetParamsDraft restores the factory defaults into the draft.
// POST /api/dashboard/params/reset
func (h *DashboardHandler) ResetParamsDraft(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.ResetParamsDraft(), "reset parameters failed")
}

// SaveParams validates and persists the parameter draft.
// POST /api/dashboard/params/save
func (h *DashboardHandler) SaveParams(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.SaveParams(context.WithoutCancel(r.Context())), "save parameters failed")
}

// CancelParamsEdit leaves parameter edit mode without saving.
// DELETE /api/dashboard/params/edit
func (h *DashboardHandler) CancelParamsEdit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.ctrl.CancelParamsEdit(), "cancel parameters edit failed")
}

// ListNotifications returns the visible toasts, newest first.
// GET /api/notifications
func (h *DashboardHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": h.ctrl.Snapshot().Notifications})
}

// DismissNotification closes a toast. Dismissing an already removed toast
// is a no-op.
// DELETE /api/notifications/{id}
func (h *DashboardHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	h.ctrl.DismissNotification(pathParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// NotificationAction runs a toast's action button.
// POST /api/notifications/{id}/action
func (h *DashboardHandler) NotificationAction(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	err := h.ctrl.TriggerNotificationAction(id)
	if err != nil {
		err = fmt.Errorf("notification %s: %w", id, err)
	}
	h.respond(w, r, err, "notification action failed")
}
