package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/arblens/internal/cache/memory"
	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/notify"
	"github.com/alanyoungcy/arblens/internal/pairview"
	"github.com/alanyoungcy/arblens/internal/service"
	storemem "github.com/alanyoungcy/arblens/internal/store/memory"
	"github.com/alanyoungcy/arblens/internal/store/seed"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gatedPairs lets a test hold or fail bulk actions.
type gatedPairs struct {
	*service.PairService
	started chan struct{}
	release chan struct{}
	err     error
	ctxErr  error
}

func (g *gatedPairs) BulkApply(ctx context.Context, action domain.BulkAction, ids []string, reason string) ([]domain.MarketPair, error) {
	if g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
		g.ctxErr = ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.PairService.BulkApply(ctx, action, ids, reason)
}

type harness struct {
	ctrl   *Controller
	pairs  *gatedPairs
	store  *storemem.PairStore
	params *storemem.ParameterStore
	queue  *notify.Queue
}

func newHarness(t *testing.T, role Role) harness {
	t.Helper()
	logger := testLogger()
	store := storemem.NewPairStore(seed.Pairs()...)
	audit := storemem.NewAuditStore()
	paramStore := storemem.NewParameterStore()

	pairs := &gatedPairs{PairService: service.NewPairService(store, audit, nil, nil, nil, service.PairServiceConfig{}, logger)}
	params := service.NewParameterService(paramStore, audit, nil, 0, logger)

	sched := notify.NewManualScheduler(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	queue := notify.NewQueue(logger, notify.WithScheduler(sched), notify.WithClock(sched.Now))

	ctrl := NewController(pairs, params, queue, role, logger)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return harness{ctrl: ctrl, pairs: pairs, store: store, params: paramStore, queue: queue}
}

func rowIDs(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestResetFiltersRestoresFullView(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	full := rowIDs(h.ctrl.Snapshot().Rows)

	err := h.ctrl.SetFilters(domain.FilterState{
		MinConfidence: intPtr(90),
		Venues:        []domain.Venue{domain.VenueKalshi},
		Categories:    []domain.Category{domain.CategoryPolitics},
		Status:        "active",
	})
	if err != nil {
		t.Fatal(err)
	}
	h.ctrl.SetSearch("trump")
	if got := len(h.ctrl.Snapshot().Rows); got >= len(full) {
		t.Fatalf("filtered view has %d rows, want fewer than %d", got, len(full))
	}

	h.ctrl.ResetFilters()
	snap := h.ctrl.Snapshot()
	if !reflect.DeepEqual(snap.Filters, domain.DefaultFilterState()) {
		t.Fatalf("filters = %+v, want defaults", snap.Filters)
	}
	if snap.Search != "" {
		t.Fatalf("search = %q, want empty", snap.Search)
	}
	if got := rowIDs(snap.Rows); !reflect.DeepEqual(got, full) {
		t.Fatalf("rows = %v, want %v", got, full)
	}

	want := pairview.IDs(pairview.Derive(seed.Pairs(), domain.DefaultFilterState(), "", snap.Sort))
	if !reflect.DeepEqual(full, want) {
		t.Fatalf("full view = %v, want %v", full, want)
	}
}

func TestSearchKeepsWhitespace(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	h.ctrl.SetSearch("Lakers ")
	snap := h.ctrl.Snapshot()
	if snap.Search != "Lakers " {
		t.Fatalf("search = %q, want %q", snap.Search, "Lakers ")
	}
	if got := rowIDs(snap.Rows); !reflect.DeepEqual(got, []string{"pair-4"}) {
		t.Fatalf("rows = %v, want [pair-4]", got)
	}

	h.ctrl.SetSearch("2025? ")
	if got := len(h.ctrl.Snapshot().Rows); got != 0 {
		t.Fatalf("rows = %d, want 0", got)
	}
}

func TestSelectAllVisibleIsAllOrNothing(t *testing.T) {
	h := newHarness(t, RoleAdmin)

	h.ctrl.SelectAllVisible()
	snap := h.ctrl.Snapshot()
	if len(snap.Selection) != 5 || !snap.AllSelected {
		t.Fatalf("selection = %v, want all 5", snap.Selection)
	}

	h.ctrl.SelectAllVisible()
	if snap := h.ctrl.Snapshot(); len(snap.Selection) != 0 {
		t.Fatalf("selection = %v, want empty", snap.Selection)
	}

	if err := h.ctrl.SetFilters(domain.FilterState{MinConfidence: intPtr(80)}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ctrl.ToggleRow("pair-5"); err != nil {
		t.Fatal(err)
	}
	h.ctrl.SelectAllVisible()
	snap = h.ctrl.Snapshot()
	if want := []string{"pair-1", "pair-2", "pair-3"}; !reflect.DeepEqual(snap.Selection, want) {
		t.Fatalf("selection = %v, want %v", snap.Selection, want)
	}
	if snap.Stats.TotalPairs != 5 || snap.Stats.Visible != 3 || snap.Stats.Selected != 3 {
		t.Fatalf("stats = %+v", snap.Stats)
	}
}

func TestSelectPairLeavesSelectionAlone(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	if _, err := h.ctrl.ToggleRow("pair-2"); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.SelectPair("pair-4"); err != nil {
		t.Fatal(err)
	}
	snap := h.ctrl.Snapshot()
	if !reflect.DeepEqual(snap.Selection, []string{"pair-2"}) {
		t.Fatalf("selection = %v", snap.Selection)
	}
	if snap.SelectedPairID != "pair-4" || !snap.Detail.Visible || snap.Detail.Pair.ID != "pair-4" {
		t.Fatalf("detail = %+v", snap.Detail)
	}
	if err := h.ctrl.SelectPair("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBulkRejectThroughDialog(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	ctx := context.Background()

	h.ctrl.ToggleRow("pair-1")
	h.ctrl.ToggleRow("pair-2")
	if err := h.ctrl.RequestBulkAction(domain.BulkReject, nil); err != nil {
		t.Fatal(err)
	}
	st := h.ctrl.Snapshot().Dialog
	if !st.Open || st.Copy.Title != "Reject Market Pairs" || !st.ShowsReason {
		t.Fatalf("dialog = %+v", st)
	}
	if err := h.ctrl.SetBulkReason("duplicate"); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.ConfirmBulkAction(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	snap := h.ctrl.Snapshot()
	if snap.Dialog.Open || len(snap.Selection) != 0 {
		t.Fatalf("dialog open=%v selection=%v after success", snap.Dialog.Open, snap.Selection)
	}
	for _, r := range snap.Rows {
		switch r.ID {
		case "pair-1", "pair-2":
			if r.Status != domain.PairStatusRejected || r.OverrideReason != "duplicate" {
				t.Fatalf("%s = %s/%q", r.ID, r.Status, r.OverrideReason)
			}
		case "pair-3":
			if r.Status != domain.PairStatusOverridden {
				t.Fatalf("pair-3 status = %s", r.Status)
			}
		}
	}
	if len(snap.Notifications) != 1 {
		t.Fatalf("notifications = %+v", snap.Notifications)
	}
	n := snap.Notifications[0]
	if n.Type != domain.NotifySuccess || n.Message != "Successfully rejected 2 market pairs" {
		t.Fatalf("notification = %+v", n)
	}
}

func TestBulkFailureKeepsDialogOpen(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	h.pairs.err = errors.New("backend unavailable")

	if err := h.ctrl.RequestBulkAction(domain.BulkApprove, []string{"pair-2"}); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.ConfirmBulkAction(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := h.ctrl.Snapshot()
	if !snap.Dialog.Open || snap.Dialog.Processing || snap.Dialog.LastError == "" {
		t.Fatalf("dialog = %+v", snap.Dialog)
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Type != domain.NotifyError {
		t.Fatalf("notifications = %+v", snap.Notifications)
	}
	if p, _ := h.store.Get(context.Background(), "pair-2"); p.Status != domain.PairStatusPending {
		t.Fatalf("pair-2 status = %s", p.Status)
	}
}

func TestClosingDialogDiscardsLateResult(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	h.pairs.started = make(chan struct{})
	h.pairs.release = make(chan struct{})

	if err := h.ctrl.RequestBulkAction(domain.BulkApprove, []string{"pair-2"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ConfirmBulkAction(context.Background()) }()
	<-h.pairs.started

	if !h.ctrl.Snapshot().Dialog.Processing {
		t.Fatal("dialog not processing while handler runs")
	}
	if err := h.ctrl.ConfirmBulkAction(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("second confirm = %v, want ErrBusy", err)
	}

	h.ctrl.CloseBulkDialog()
	close(h.pairs.release)

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrStale) {
			t.Fatalf("confirm = %v, want ErrStale", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return")
	}
	if !errors.Is(h.pairs.ctxErr, context.Canceled) {
		t.Fatalf("handler ctx err = %v, want canceled", h.pairs.ctxErr)
	}

	snap := h.ctrl.Snapshot()
	if snap.Dialog.Open || snap.Dialog.Processing {
		t.Fatalf("dialog = %+v", snap.Dialog)
	}
	if len(snap.Notifications) != 0 {
		t.Fatalf("stale result raised notifications: %+v", snap.Notifications)
	}
	if p, _ := h.store.Get(context.Background(), "pair-2"); p.Status != domain.PairStatusPending {
		t.Fatalf("pair-2 status = %s, want pending", p.Status)
	}
}

func TestRequestBulkActionValidation(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	if err := h.ctrl.RequestBulkAction(domain.BulkApprove, nil); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("empty selection = %v", err)
	}
	if err := h.ctrl.RequestBulkAction("merge", []string{"pair-1"}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("bad action = %v", err)
	}
	if err := h.ctrl.SetBulkReason("x"); !errors.Is(err, domain.ErrDialogClosed) {
		t.Fatalf("reason on closed dialog = %v", err)
	}
	if err := h.ctrl.ConfirmBulkAction(context.Background()); !errors.Is(err, domain.ErrDialogClosed) {
		t.Fatalf("confirm on closed dialog = %v", err)
	}
}

func TestOverrideSavesConfidence(t *testing.T) {
	h := newHarness(t, RoleAdmin)

	if err := h.ctrl.BeginDetailEdit(); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("edit without pair = %v", err)
	}
	if err := h.ctrl.SelectPair("pair-4"); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.BeginDetailEdit(); err != nil {
		t.Fatal(err)
	}
	if got := h.ctrl.Snapshot().Detail.DraftConfidence; got != 76 {
		t.Fatalf("draft seeded with %d, want 76", got)
	}
	if err := h.ctrl.SetDetailDraft(150, ""); err != nil {
		t.Fatal(err)
	}
	if got := h.ctrl.Snapshot().Detail.DraftConfidence; got != 100 {
		t.Fatalf("draft = %d, want clamped 100", got)
	}
	if err := h.ctrl.SetDetailDraft(82, "confirmed resolution source"); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.SaveDetail(context.Background()); err != nil {
		t.Fatalf("SaveDetail: %v", err)
	}

	snap := h.ctrl.Snapshot()
	if snap.Detail.Editing {
		t.Fatal("still editing after save")
	}
	if p := snap.Detail.Pair; p.Confidence != 82 || p.Status != domain.PairStatusOverridden {
		t.Fatalf("detail pair = %d/%s", p.Confidence, p.Status)
	}
	for _, r := range snap.Rows {
		if r.ID == "pair-4" && (r.Confidence != 82 || r.Status != domain.PairStatusOverridden) {
			t.Fatalf("row = %+v", r.MarketPair)
		}
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Title != "Pair Updated" {
		t.Fatalf("notifications = %+v", snap.Notifications)
	}
	if err := h.ctrl.SaveDetail(context.Background()); !errors.Is(err, domain.ErrNotEditing) {
		t.Fatalf("second save = %v, want ErrNotEditing", err)
	}
}

func TestOverrideFailureExitsEditAndNotifies(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	h.ctrl.SelectPair("pair-1")
	h.ctrl.BeginDetailEdit()
	h.store.FailWith(errors.New("db down"))

	if err := h.ctrl.SaveDetail(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := h.ctrl.Snapshot()
	if snap.Detail.Editing || snap.Detail.Saving {
		t.Fatalf("detail = %+v", snap.Detail)
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Type != domain.NotifyError {
		t.Fatalf("notifications = %+v", snap.Notifications)
	}
}

func TestParamsPanelAdminOnly(t *testing.T) {
	h := newHarness(t, RoleUser)
	if err := h.ctrl.BeginParamsEdit(); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("BeginParamsEdit = %v, want ErrForbidden", err)
	}
	if _, err := h.ctrl.ToggleParams(); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ToggleParams = %v", err)
	}
	if err := h.ctrl.SaveParams(context.Background()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("SaveParams = %v", err)
	}
	if st := h.ctrl.Snapshot().Params; st.Available || st.Current != nil {
		t.Fatalf("params state leaked to user: %+v", st)
	}
}

func TestParamsSave(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	ctx := context.Background()

	if err := h.ctrl.SetParamsDraft(domain.DefaultSystemParameters()); !errors.Is(err, domain.ErrNotEditing) {
		t.Fatalf("draft before edit = %v", err)
	}
	if err := h.ctrl.BeginParamsEdit(); err != nil {
		t.Fatal(err)
	}

	bad := domain.DefaultSystemParameters()
	bad.RefreshInterval = 10
	h.ctrl.SetParamsDraft(bad)
	if err := h.ctrl.SaveParams(ctx); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("invalid save = %v", err)
	}
	st := h.ctrl.Snapshot().Params
	if !st.Editing || st.LastError == "" {
		t.Fatalf("params after invalid save = %+v", st)
	}

	if err := h.ctrl.ResetParamsDraft(); err != nil {
		t.Fatal(err)
	}
	good := domain.DefaultSystemParameters()
	good.MatchingAlgorithm = domain.MatchingStatistical
	h.ctrl.SetParamsDraft(good)
	if err := h.ctrl.SaveParams(ctx); err != nil {
		t.Fatalf("SaveParams: %v", err)
	}

	st = h.ctrl.Snapshot().Params
	if st.Editing || st.Current.MatchingAlgorithm != domain.MatchingStatistical {
		t.Fatalf("params = %+v", st)
	}
	stored, _ := h.params.Get(ctx)
	if stored.MatchingAlgorithm != domain.MatchingStatistical {
		t.Fatalf("stored algorithm = %s", stored.MatchingAlgorithm)
	}

	var titles []string
	for _, n := range h.ctrl.Snapshot().Notifications {
		titles = append(titles, n.Title)
	}
	if got := strings.Join(titles, ","); got != "System Parameters Not Saved,System Parameters Updated" {
		t.Fatalf("notifications = %s", got)
	}
}

func TestTriggerReviewPair(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	ctx := context.Background()

	n := h.queue.Add(notify.OpportunityNotification())
	if err := h.ctrl.TriggerNotificationAction(n.ID); err != nil {
		t.Fatalf("no qualifying pair = %v, want nil", err)
	}
	if _, ok := h.queue.Get(n.ID); ok {
		t.Fatal("notification not dismissed")
	}
	if got := h.ctrl.Snapshot().SelectedPairID; got != "" {
		t.Fatalf("selected = %q, want none", got)
	}

	// pair-5 ranks highest by confidence but pair-3 comes first in the list.
	for id, confidence := range map[string]int{"pair-3": 96, "pair-5": 99} {
		if _, err := h.pairs.Override(ctx, id, confidence, "checked"); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.ctrl.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	n = h.queue.Add(notify.OpportunityNotification())
	if err := h.ctrl.TriggerNotificationAction(n.ID); err != nil {
		t.Fatalf("TriggerNotificationAction: %v", err)
	}
	if got := h.ctrl.Snapshot().SelectedPairID; got != "pair-3" {
		t.Fatalf("selected = %q, want pair-3", got)
	}

	plain := h.queue.Add(domain.Notification{Title: "no action"})
	if err := h.ctrl.TriggerNotificationAction(plain.ID); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("plain = %v, want ErrInvalidAction", err)
	}
	if _, ok := h.queue.Get(plain.ID); !ok {
		t.Fatal("rejected notification was dismissed")
	}
	if err := h.ctrl.TriggerNotificationAction("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing = %v, want ErrNotFound", err)
	}
}

func TestSortToggleReversesRows(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	desc := rowIDs(h.ctrl.Snapshot().Rows)
	h.ctrl.ToggleSort(domain.SortByConfidence)
	asc := rowIDs(h.ctrl.Snapshot().Rows)
	for i := range desc {
		if desc[i] != asc[len(asc)-1-i] {
			t.Fatalf("asc %v is not the reverse of desc %v", asc, desc)
		}
	}
}

func TestWatchMergesPairEvents(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	bus := memory.NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Watch(ctx, bus) }()

	p := seed.Pairs()[4]
	p.Status = domain.PairStatusActive
	raw, _ := json.Marshal(domain.PairEvent{Kind: domain.PairsBulk, Pairs: []domain.MarketPair{p}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = bus.Publish(ctx, domain.ChannelPairs, raw)
		for _, r := range h.ctrl.Snapshot().Rows {
			if r.ID == "pair-5" && r.Status == domain.PairStatusActive {
				cancel()
				<-done
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("pair event never merged")
}

func TestWatchAppliesParameterUpdates(t *testing.T) {
	h := newHarness(t, RoleAdmin)
	bus := memory.NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Watch(ctx, bus) }()

	// A save made outside the dashboard, e.g. PUT /api/parameters.
	svc := service.NewParameterService(h.params, storemem.NewAuditStore(), bus, 0, testLogger())
	want := domain.DefaultSystemParameters()
	want.MinConfidenceThreshold = 42

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := svc.Update(ctx, want); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if cur := h.ctrl.Snapshot().Params.Current; cur != nil && cur.MinConfidenceThreshold == 42 {
			cancel()
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dashboard current = %+v, want min confidence 42", h.ctrl.Snapshot().Params.Current)
}
