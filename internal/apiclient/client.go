// Package apiclient is the REST client for the arblens dashboard API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
)

// Client talks to a running arblens server. Every intent method returns the
// session snapshot the server answers with.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New creates a Client. baseURL is the server root, e.g.
// "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot fetches the current session state.
func (c *Client) Snapshot(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodGet, "/api/dashboard", nil, "snapshot")
}

// Refresh reloads the pair list on the server.
func (c *Client) Refresh(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/refresh", nil, "refresh")
}

// SetFilters replaces the table filters.
func (c *Client) SetFilters(ctx context.Context, f domain.FilterState) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPut, "/api/dashboard/filters", f, "set filters")
}

// ResetFilters restores the neutral filters and clears the search.
func (c *Client) ResetFilters(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodDelete, "/api/dashboard/filters", nil, "reset filters")
}

// SetSearch replaces the free-text search.
func (c *Client) SetSearch(ctx context.Context, q string) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPut, "/api/dashboard/search", map[string]string{"search": q}, "set search")
}

// ToggleSort clicks the sort header for key.
func (c *Client) ToggleSort(ctx context.Context, key domain.SortKey) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/sort/"+url.PathEscape(string(key)), nil, "toggle sort")
}

// SelectPair opens id in the detail panel.
func (c *Client) SelectPair(ctx context.Context, id string) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/select/"+url.PathEscape(id), nil, "select pair")
}

// ToggleDetails shows or hides the detail panel.
func (c *Client) ToggleDetails(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/details/toggle", nil, "toggle details")
}

// ToggleRow flips one row's checkbox.
func (c *Client) ToggleRow(ctx context.Context, id string) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/selection/"+url.PathEscape(id), nil, "toggle row")
}

// SelectAll toggles the header checkbox.
func (c *Client) SelectAll(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/selection/all", nil, "select all")
}

// ClearSelection unchecks every row.
func (c *Client) ClearSelection(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodDelete, "/api/dashboard/selection", nil, "clear selection")
}

// RequestBulk opens the confirmation dialog for action. A nil ids uses the
// current selection.
func (c *Client) RequestBulk(ctx context.Context, action domain.BulkAction, ids []string) (dashboard.Snapshot, error) {
	body := map[string]any{"action": action}
	if ids != nil {
		body["ids"] = ids
	}
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/bulk", body, "request bulk")
}

// SetBulkReason edits the dialog's reason.
func (c *Client) SetBulkReason(ctx context.Context, reason string) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPut, "/api/dashboard/bulk/reason", map[string]string{"reason": reason}, "set reason")
}

// ConfirmBulk runs the dialog's action and waits for the outcome.
func (c *Client) ConfirmBulk(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/bulk/confirm", nil, "confirm bulk")
}

// CloseBulk dismisses the dialog.
func (c *Client) CloseBulk(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodDelete, "/api/dashboard/bulk", nil, "close bulk")
}

// BeginDetailEdit enters override edit mode.
func (c *Client) BeginDetailEdit(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/detail/edit", nil, "begin edit")
}

// SetDetailDraft edits the override draft.
func (c *Client) SetDetailDraft(ctx context.Context, confidence int, reason string) (dashboard.Snapshot, error) {
	body := map[string]any{"confidence": confidence, "reason": reason}
	return c.snapshot(ctx, http.MethodPut, "/api/dashboard/detail/draft", body, "set draft")
}

// SaveDetail persists the override draft.
func (c *Client) SaveDetail(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/detail/save", nil, "save detail")
}

// CancelDetailEdit leaves override edit mode.
func (c *Client) CancelDetailEdit(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodDelete, "/api/dashboard/detail/edit", nil, "cancel edit")
}

// ToggleParams shows or hides the parameters panel.
func (c *Client) ToggleParams(ctx context.Context) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/dashboard/params/toggle", nil, "toggle params")
}

// DismissNotification closes a toast. Dismissing a missing toast succeeds.
func (c *Client) DismissNotification(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("apiclient: dismiss %s: %w", id, err)
	}
	return nil
}

// NotificationAction runs a toast's action button.
func (c *Client) NotificationAction(ctx context.Context, id string) (dashboard.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/action", nil, "notification action")
}

func (c *Client) snapshot(ctx context.Context, method, path string, in any, op string) (dashboard.Snapshot, error) {
	body, err := c.do(ctx, method, path, in)
	if err != nil {
		return dashboard.Snapshot{}, fmt.Errorf("apiclient: %s: %w", op, err)
	}
	var snap dashboard.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return dashboard.Snapshot{}, fmt.Errorf("apiclient: decode %s: %w", op, err)
	}
	return snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var rd io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Unwrap maps the status to the matching domain sentinel so callers can use
// errors.Is.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		return nil
	}
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &Error{Status: statusCode, Message: msg}
}

// IsStatus reports whether err is an Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
