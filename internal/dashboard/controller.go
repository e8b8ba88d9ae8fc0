// Package dashboard is the market pair management session: the pair table
// with filters and selection, the bulk action dialog, the detail panel with
// its override editor, the system parameters panel and the notification
// toasts. A Controller owns all of it and serializes every intent.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// ReviewConfidence is the confidence a pair needs to be picked by the
// "Review Pair" notification action.
const ReviewConfidence = 95

// PairBackend reads and mutates the canonical pair list.
type PairBackend interface {
	All(ctx context.Context) ([]domain.MarketPair, error)
	Override(ctx context.Context, id string, confidence int, reason string) (domain.MarketPair, error)
	BulkApply(ctx context.Context, action domain.BulkAction, ids []string, reason string) ([]domain.MarketPair, error)
}

// Notifications is the toast queue.
type Notifications interface {
	Add(n domain.Notification) domain.Notification
	Dismiss(id string) bool
	Get(id string) (domain.Notification, bool)
	List() []domain.Notification
}

// Controller owns the dashboard session state. Intents are serialized by a
// mutex that is released while backend calls are in flight, so a slow bulk
// action or save does not block other intents.
type Controller struct {
	mu       sync.Mutex
	table    *Table
	selected string

	pairs  PairBackend
	dialog *BulkDialog
	detail *DetailPanel
	params *ParamsPanel
	notes  Notifications
	role   Role
	logger *slog.Logger
}

// NewController wires a controller for role over the given backends.
func NewController(pairs PairBackend, params ParamBackend, notes Notifications, role Role, logger *slog.Logger) *Controller {
	c := &Controller{
		table:  NewTable(),
		pairs:  pairs,
		params: NewParamsPanel(role, params),
		notes:  notes,
		role:   role,
		logger: logger.With(slog.String("component", "dashboard")),
	}
	c.dialog = NewBulkDialog(c.applyBulk)
	c.detail = NewDetailPanel(c.applyOverride)
	return c
}

// Role returns the session role.
func (c *Controller) Role() Role { return c.role }

// Refresh reloads pairs and parameters from the backends.
func (c *Controller) Refresh(ctx context.Context) error {
	pairs, err := c.pairs.All(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: refresh pairs: %w", err)
	}
	c.mu.Lock()
	c.table.SetPairs(pairs)
	c.syncDetailLocked()
	c.mu.Unlock()

	if err := c.params.Load(ctx); err != nil {
		return fmt.Errorf("dashboard: refresh parameters: %w", err)
	}
	return nil
}

// ApplyPairs merges externally updated pairs into the session.
func (c *Controller) ApplyPairs(updated []domain.MarketPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Merge(updated)
	c.syncDetailLocked()
}

// syncDetailLocked pushes the selected pair's latest data to the panel.
func (c *Controller) syncDetailLocked() {
	if c.selected == "" {
		return
	}
	if p, ok := c.table.Pair(c.selected); ok {
		c.detail.SetPair(p)
	}
}

// SelectPair shows a pair in the detail panel. Row selection is untouched.
func (c *Controller) SelectPair(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.table.Pair(id)
	if !ok {
		return fmt.Errorf("%w: pair %q", domain.ErrNotFound, id)
	}
	c.selected = id
	c.detail.SetPair(p)
	c.detail.SetVisible(true)
	return nil
}

// ToggleDetails shows or hides the detail panel.
func (c *Controller) ToggleDetails() bool { return c.detail.Toggle() }

// SetFilters applies the table filters.
func (c *Controller) SetFilters(f domain.FilterState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.SetFilters(f)
}

// SetSearch applies the title search.
func (c *Controller) SetSearch(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.SetSearch(s)
}

// ResetFilters restores neutral filters and clears the search.
func (c *Controller) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.ResetFilters()
}

// ToggleSort flips or switches the sort key.
func (c *Controller) ToggleSort(key domain.SortKey) domain.SortConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.ToggleSort(key)
}

// ToggleRow flips a row checkbox.
func (c *Controller) ToggleRow(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.table.Pair(id); !ok {
		return false, fmt.Errorf("%w: pair %q", domain.ErrNotFound, id)
	}
	return c.table.ToggleRow(id), nil
}

// SelectAllVisible toggles the header checkbox.
func (c *Controller) SelectAllVisible() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.SelectAllVisible()
}

// ClearSelection unchecks every row.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.ClearSelection()
}

// RequestBulkAction opens the confirmation dialog. Nil ids means the
// current selection.
func (c *Controller) RequestBulkAction(action domain.BulkAction, ids []string) error {
	if ids == nil {
		c.mu.Lock()
		ids = c.table.Selected()
		c.mu.Unlock()
	}
	return c.dialog.Open(action, ids)
}

// SetBulkReason updates the dialog reason.
func (c *Controller) SetBulkReason(reason string) error { return c.dialog.SetReason(reason) }

// CloseBulkDialog dismisses the dialog, cancelling a pending confirm.
func (c *Controller) CloseBulkDialog() { c.dialog.Close() }

// ConfirmBulkAction runs the dialog's action. Success clears the selection
// and raises a success toast; failure keeps the dialog open and raises an
// error toast.
func (c *Controller) ConfirmBulkAction(ctx context.Context) error {
	action, ids, err := c.dialog.Confirm(ctx)
	switch {
	case err == nil:
		c.mu.Lock()
		c.table.ClearSelection()
		c.mu.Unlock()
		c.notes.Add(domain.Notification{
			Type:    domain.NotifySuccess,
			Title:   "Bulk Action Completed",
			Message: fmt.Sprintf("Successfully %s %d market %s", action.PastTense(), len(ids), plural(len(ids), "pair", "pairs")),
		})
		return nil
	case errors.Is(err, domain.ErrStale):
		c.logger.InfoContext(ctx, "discarded stale bulk result",
			slog.String("action", string(action)),
		)
		return err
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrDialogClosed):
		return err
	default:
		c.logger.ErrorContext(ctx, "bulk action failed",
			slog.String("action", string(action)),
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
		c.notes.Add(domain.Notification{
			Type:    domain.NotifyError,
			Title:   "Bulk Action Failed",
			Message: fmt.Sprintf("Could not %s %d market %s: %v", action, len(ids), plural(len(ids), "pair", "pairs"), err),
		})
		return err
	}
}

func (c *Controller) applyBulk(ctx context.Context, action domain.BulkAction, ids []string, reason string) error {
	updated, err := c.pairs.BulkApply(ctx, action, ids, reason)
	if err != nil {
		return err
	}
	c.ApplyPairs(updated)
	return nil
}

func (c *Controller) applyOverride(ctx context.Context, id string, confidence int, reason string) (domain.MarketPair, error) {
	p, err := c.pairs.Override(ctx, id, confidence, reason)
	if err != nil {
		return domain.MarketPair{}, err
	}
	c.ApplyPairs([]domain.MarketPair{p})
	return p, nil
}

// BeginDetailEdit enters override edit mode.
func (c *Controller) BeginDetailEdit() error { return c.detail.BeginEdit() }

// SetDetailDraft updates the override draft.
func (c *Controller) SetDetailDraft(confidence int, reason string) error {
	return c.detail.SetDraft(confidence, reason)
}

// CancelDetailEdit leaves override edit mode.
func (c *Controller) CancelDetailEdit() { c.detail.CancelEdit() }

// SaveDetail persists the override draft.
func (c *Controller) SaveDetail(ctx context.Context) error {
	_, err := c.detail.Save(ctx)
	switch {
	case err == nil:
		c.notes.Add(domain.Notification{
			Type:    domain.NotifySuccess,
			Title:   "Pair Updated",
			Message: "Market pair configuration has been updated successfully",
		})
		return nil
	case errors.Is(err, domain.ErrStale), errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrNotEditing):
		return err
	default:
		c.logger.ErrorContext(ctx, "pair override failed",
			slog.String("pair_id", c.detail.PairID()),
			slog.String("error", err.Error()),
		)
		c.notes.Add(domain.Notification{
			Type:    domain.NotifyError,
			Title:   "Pair Update Failed",
			Message: err.Error(),
		})
		return err
	}
}

// ToggleParams shows or hides the parameters panel.
func (c *Controller) ToggleParams() (bool, error) { return c.params.Toggle() }

// BeginParamsEdit enters parameters edit mode.
func (c *Controller) BeginParamsEdit() error { return c.params.BeginEdit() }

// SetParamsDraft replaces the parameters draft.
func (c *Controller) SetParamsDraft(p domain.SystemParameters) error { return c.params.Set(p) }

// ResetParamsDraft loads the defaults into the draft.
func (c *Controller) ResetParamsDraft() error { return c.params.Reset() }

// CancelParamsEdit discards the draft.
func (c *Controller) CancelParamsEdit() error { return c.params.CancelEdit() }

// SaveParams persists the parameters draft.
func (c *Controller) SaveParams(ctx context.Context) error {
	_, err := c.params.Save(ctx)
	switch {
	case err == nil:
		c.notes.Add(domain.Notification{
			Type:    domain.NotifySuccess,
			Title:   "System Parameters Updated",
			Message: "System matching parameters have been updated successfully",
		})
		return nil
	case errors.Is(err, domain.ErrStale), errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrNotEditing), errors.Is(err, domain.ErrForbidden):
		return err
	default:
		c.logger.ErrorContext(ctx, "parameter save failed", slog.String("error", err.Error()))
		c.notes.Add(domain.Notification{
			Type:    domain.NotifyError,
			Title:   "System Parameters Not Saved",
			Message: err.Error(),
		})
		return err
	}
}

// DismissNotification removes a toast.
func (c *Controller) DismissNotification(id string) bool { return c.notes.Dismiss(id) }

// TriggerNotificationAction runs a toast's action button and dismisses it.
// "Review Pair" selects the first pair in list order at or above
// ReviewConfidence; when none qualifies the toast is only dismissed.
func (c *Controller) TriggerNotificationAction(id string) error {
	n, ok := c.notes.Get(id)
	if !ok {
		return fmt.Errorf("%w: notification %q", domain.ErrNotFound, id)
	}
	if n.Action == nil {
		return fmt.Errorf("%w: notification %q has no action", domain.ErrInvalidAction, id)
	}
	if n.Action.Label != domain.ReviewPairAction {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAction, n.Action.Label)
	}

	c.mu.Lock()
	target, found := "", false
	for _, p := range c.table.Pairs() {
		if p.Confidence >= ReviewConfidence {
			target, found = p.ID, true
			break
		}
	}
	c.mu.Unlock()

	c.notes.Dismiss(id)
	if !found {
		return nil
	}
	return c.SelectPair(target)
}

// Watch merges pair and parameter events from the bus until ctx is done.
func (c *Controller) Watch(ctx context.Context, bus domain.SignalBus) error {
	pairs, err := bus.Subscribe(ctx, domain.ChannelPairs)
	if err != nil {
		return fmt.Errorf("dashboard: subscribe pairs: %w", err)
	}
	params, err := bus.Subscribe(ctx, domain.ChannelParams)
	if err != nil {
		return fmt.Errorf("dashboard: subscribe params: %w", err)
	}
	for pairs != nil || params != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-pairs:
			if !ok {
				pairs = nil
				continue
			}
			var ev domain.PairEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				c.logger.WarnContext(ctx, "bad pair event", slog.String("error", err.Error()))
				continue
			}
			c.ApplyPairs(ev.Pairs)
		case raw, ok := <-params:
			if !ok {
				params = nil
				continue
			}
			var p domain.SystemParameters
			if err := json.Unmarshal(raw, &p); err != nil {
				c.logger.WarnContext(ctx, "bad params event", slog.String("error", err.Error()))
				continue
			}
			c.params.SetCurrent(p)
		}
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
