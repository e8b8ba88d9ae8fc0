package apiclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/arblens/internal/cache/memory"
	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/notify"
	"github.com/alanyoungcy/arblens/internal/server"
	"github.com/alanyoungcy/arblens/internal/server/handler"
	"github.com/alanyoungcy/arblens/internal/service"
	storemem "github.com/alanyoungcy/arblens/internal/store/memory"
	"github.com/alanyoungcy/arblens/internal/store/seed"
)

func newTestClient(t *testing.T, apiKey string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storemem.NewPairStore(seed.Pairs()...)
	audit := storemem.NewAuditStore()
	bus := memory.NewSignalBus()

	pairs := service.NewPairService(store, audit, nil, nil, bus, service.PairServiceConfig{}, logger)
	params := service.NewParameterService(storemem.NewParameterStore(), audit, bus, 0, logger)
	queue := notify.NewQueue(logger, notify.WithScheduler(notify.NewManualScheduler(time.Now())))
	t.Cleanup(queue.Close)

	ctrl := dashboard.NewController(pairs, params, queue, dashboard.RoleAdmin, logger)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	srv := server.NewServer(server.Config{APIKey: apiKey, Admin: true}, server.Handlers{
		Health:    handler.NewHealthHandler(nil, logger),
		Status:    handler.NewStatusHandler(domain.ServiceStatus{Mode: "server"}, pairs, logger),
		Nav:       handler.NewNavHandler(),
		Pairs:     handler.NewPairHandler(pairs, logger),
		Params:    handler.NewParameterHandler(params, logger),
		Audit:     handler.NewAuditHandler(service.NewAuditService(audit), logger),
		Export:    handler.NewExportHandler(nil, logger),
		Dashboard: handler.NewDashboardHandler(ctrl, logger),
	}, nil, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", WithAPIKey(apiKey), WithHTTPClient(ts.Client()))
}

func TestSnapshot(t *testing.T) {
	c := newTestClient(t, "k")
	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Stats.TotalPairs != 5 || len(snap.Rows) != 5 {
		t.Fatalf("stats = %+v rows = %d", snap.Stats, len(snap.Rows))
	}
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, "k")
	c.apiKey = "wrong"
	_, err := c.Snapshot(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("IsStatus(401) = false for %v", err)
	}
}

func TestBulkFlow(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "")

	snap, err := c.ToggleRow(ctx, "pair-2")
	if err != nil {
		t.Fatalf("ToggleRow: %v", err)
	}
	if snap.Stats.Selected != 1 {
		t.Fatalf("selected = %d, want 1", snap.Stats.Selected)
	}

	snap, err = c.RequestBulk(ctx, domain.BulkApprove, nil)
	if err != nil {
		t.Fatalf("RequestBulk: %v", err)
	}
	if !snap.Dialog.Open || len(snap.Dialog.IDs) != 1 {
		t.Fatalf("dialog = %+v", snap.Dialog)
	}

	snap, err = c.ConfirmBulk(ctx)
	if err != nil {
		t.Fatalf("ConfirmBulk: %v", err)
	}
	if snap.Dialog.Open {
		t.Fatal("dialog still open after confirm")
	}
	if len(snap.Notifications) == 0 {
		t.Fatal("no completion notification")
	}

	// A second confirm has no open dialog.
	if _, err := c.ConfirmBulk(ctx); !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("second confirm err = %v, want 400", err)
	}

	id := snap.Notifications[0].ID
	if err := c.DismissNotification(ctx, id); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if err := c.DismissNotification(ctx, id); err != nil {
		t.Fatalf("second Dismiss: %v", err)
	}
}

func TestSearchAndSort(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "")

	snap, err := c.SetSearch(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("SetSearch: %v", err)
	}
	if snap.Search != "bitcoin" || snap.Stats.TotalPairs != 5 {
		t.Fatalf("search = %q total = %d", snap.Search, snap.Stats.TotalPairs)
	}

	if _, err := c.ResetFilters(ctx); err != nil {
		t.Fatalf("ResetFilters: %v", err)
	}
	snap, err = c.ToggleSort(ctx, domain.SortByConfidence)
	if err != nil {
		t.Fatalf("ToggleSort: %v", err)
	}
	if len(snap.Rows) != 5 {
		t.Fatalf("rows = %d", len(snap.Rows))
	}

	if _, err := c.ToggleSort(ctx, "nope"); !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("bad sort key err = %v, want 400", err)
	}
}

func TestSelectMissingPair(t *testing.T) {
	c := newTestClient(t, "")
	_, err := c.SelectPair(context.Background(), "pair-404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
