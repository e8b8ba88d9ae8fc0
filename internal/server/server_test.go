package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/arblens/internal/cache/memory"
	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/notify"
	"github.com/alanyoungcy/arblens/internal/server/handler"
	"github.com/alanyoungcy/arblens/internal/service"
	storemem "github.com/alanyoungcy/arblens/internal/store/memory"
	"github.com/alanyoungcy/arblens/internal/store/seed"
)

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

func (denyLimiter) Wait(context.Context, string) error { return nil }

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storemem.NewPairStore(seed.Pairs()...)
	audit := storemem.NewAuditStore()
	bus := memory.NewSignalBus()

	pairs := service.NewPairService(store, audit, nil, nil, bus, service.PairServiceConfig{}, logger)
	params := service.NewParameterService(storemem.NewParameterStore(), audit, bus, 0, logger)
	queue := notify.NewQueue(logger, notify.WithScheduler(notify.NewManualScheduler(time.Now())))
	t.Cleanup(queue.Close)

	role := dashboard.RoleUser
	if cfg.Admin {
		role = dashboard.RoleAdmin
	}
	ctrl := dashboard.NewController(pairs, params, queue, role, logger)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	return NewServer(cfg, Handlers{
		Health:    handler.NewHealthHandler(nil, logger),
		Status:    handler.NewStatusHandler(domain.ServiceStatus{Mode: "server", StartedAt: time.Now()}, pairs, logger),
		Nav:       handler.NewNavHandler(),
		Pairs:     handler.NewPairHandler(pairs, logger),
		Params:    handler.NewParameterHandler(params, logger),
		Audit:     handler.NewAuditHandler(service.NewAuditService(audit), logger),
		Export:    handler.NewExportHandler(nil, logger),
		Dashboard: handler.NewDashboardHandler(ctrl, logger),
	}, nil, logger)
}

func do(t *testing.T, s *Server, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, Config{APIKey: "secret"})

	tests := []struct {
		name string
		path string
		hdr  []string
		want int
	}{
		{"health is public", "/api/health", nil, http.StatusOK},
		{"missing key", "/api/pairs", nil, http.StatusUnauthorized},
		{"wrong key", "/api/pairs", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
		{"api key header", "/api/pairs", []string{"X-API-Key", "secret"}, http.StatusOK},
		{"bearer", "/api/pairs", []string{"Authorization", "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodGet, tt.path, "", tt.hdr...); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestListPairsFiltersAndSorts(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/api/pairs?min_confidence=80&sort=confidence&dir=desc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[service.ListResult](t, rec)
	if res.Total != 5 || res.Matched != 3 {
		t.Fatalf("total, matched = %d, %d; want 5, 3", res.Total, res.Matched)
	}
	var ids []string
	for _, p := range res.Pairs {
		ids = append(ids, p.ID)
	}
	if got := strings.Join(ids, ","); got != "pair-1,pair-3,pair-2" {
		t.Fatalf("order = %s, want pair-1,pair-3,pair-2", got)
	}

	for _, q := range []string{"min_confidence=x", "sort=bogus", "dir=up", "venue=nyse"} {
		if rec := do(t, s, http.MethodGet, "/api/pairs?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestGetPairAnalysis(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/api/pairs/pair-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]json.RawMessage](t, rec)
	for _, k := range []string{"pair", "factors", "weighted_score", "price_history"} {
		if _, ok := body[k]; !ok {
			t.Fatalf("missing %q in %s", k, rec.Body)
		}
	}

	if rec := do(t, s, http.MethodGet, "/api/pairs/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing pair status = %d, want 404", rec.Code)
	}
}

func TestBulkApply(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/api/pairs/bulk", `{"action":"reject","ids":["pair-1","pair-2"],"reason":"duplicate"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[struct {
		Pairs []domain.MarketPair `json:"pairs"`
	}](t, rec)
	if len(res.Pairs) != 2 {
		t.Fatalf("updated = %d, want 2", len(res.Pairs))
	}
	for _, p := range res.Pairs {
		if p.Status != domain.PairStatusRejected || p.OverrideReason != "duplicate" {
			t.Fatalf("%s = %s/%q, want rejected/duplicate", p.ID, p.Status, p.OverrideReason)
		}
	}

	tests := []struct {
		body string
		want int
	}{
		{`{"action":"archive","ids":["pair-1"]}`, http.StatusBadRequest},
		{`{"action":"approve","ids":[]}`, http.StatusBadRequest},
		{`{"action":"approve","ids":["nope"]}`, http.StatusNotFound},
		{`{"action":"approve","ids":["pair-1"],"extra":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, s, http.MethodPost, "/api/pairs/bulk", tt.body); rec.Code != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.body, rec.Code, tt.want)
		}
	}
}

func TestOverridePair(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/api/pairs/pair-2/override", `{"confidence":82,"reason":"checked"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if p := decode[domain.MarketPair](t, rec); p.Confidence != 82 || p.Status != domain.PairStatusOverridden {
		t.Fatalf("pair = %d/%s, want 82/overridden", p.Confidence, p.Status)
	}

	tests := []struct {
		path string
		body string
		want int
	}{
		{"/api/pairs/pair-2/override", `{"confidence":150}`, http.StatusBadRequest},
		{"/api/pairs/pair-2/override", `{"reason":"x"}`, http.StatusBadRequest},
		{"/api/pairs/nope/override", `{"confidence":50}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := do(t, s, http.MethodPost, tt.path, tt.body); rec.Code != tt.want {
			t.Fatalf("%s %s: status = %d, want %d", tt.path, tt.body, rec.Code, tt.want)
		}
	}
}

func TestParametersAdminGuard(t *testing.T) {
	body := `{"min_confidence_threshold":80,"max_pairs_per_venue":10,"matching_algorithm":"semantic","auto_approval_threshold":97,"refresh_interval":120,"enable_auto_matching":false,"require_manual_review":true}`

	user := newTestServer(t, Config{})
	if rec := do(t, user, http.MethodPut, "/api/parameters", body); rec.Code != http.StatusForbidden {
		t.Fatalf("user status = %d, want 403", rec.Code)
	}
	if rec := do(t, user, http.MethodGet, "/api/parameters", ""); rec.Code != http.StatusOK {
		t.Fatalf("user read status = %d, want 200", rec.Code)
	}

	admin := newTestServer(t, Config{Admin: true})
	rec := do(t, admin, http.MethodPut, "/api/parameters", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d: %s", rec.Code, rec.Body)
	}
	if p := decode[domain.SystemParameters](t, rec); p.RefreshInterval != 120 || p.MatchingAlgorithm != domain.MatchingSemantic {
		t.Fatalf("saved = %+v", p)
	}
	bad := strings.Replace(body, `"refresh_interval":120`, `"refresh_interval":5`, 1)
	if rec := do(t, admin, http.MethodPut, "/api/parameters", bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status = %d, want 400", rec.Code)
	}

	audit := decode[struct {
		Entries []domain.AuditEntry `json:"entries"`
	}](t, do(t, admin, http.MethodGet, "/api/audit", ""))
	if len(audit.Entries) != 1 || audit.Entries[0].Event != "parameters_updated" {
		t.Fatalf("audit = %+v", audit.Entries)
	}
}

func TestDashboardBulkFlow(t *testing.T) {
	s := newTestServer(t, Config{})

	if rec := do(t, s, http.MethodPost, "/api/dashboard/selection/pair-2", ""); rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/dashboard/bulk", `{"action":"approve"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d: %s", rec.Code, rec.Body)
	}
	snap := decode[dashboard.Snapshot](t, rec)
	if !snap.Dialog.Open || snap.Dialog.Copy.ConfirmLabel != "Approve Pairs" || len(snap.Dialog.IDs) != 1 {
		t.Fatalf("dialog = %+v", snap.Dialog)
	}

	rec = do(t, s, http.MethodPost, "/api/dashboard/bulk/confirm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d: %s", rec.Code, rec.Body)
	}
	snap = decode[dashboard.Snapshot](t, rec)
	if snap.Dialog.Open || len(snap.Selection) != 0 {
		t.Fatalf("after confirm: dialog open %v, selection %v", snap.Dialog.Open, snap.Selection)
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Title != "Bulk Action Completed" {
		t.Fatalf("notifications = %+v", snap.Notifications)
	}
	for _, r := range snap.Rows {
		if r.ID == "pair-2" && r.Status != domain.PairStatusActive {
			t.Fatalf("pair-2 status = %s, want active", r.Status)
		}
	}

	if rec := do(t, s, http.MethodPost, "/api/dashboard/bulk/confirm", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("confirm on closed dialog = %d, want 400", rec.Code)
	}

	id := snap.Notifications[0].ID
	if rec := do(t, s, http.MethodDelete, "/api/notifications/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("dismiss status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/notifications/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("second dismiss status = %d", rec.Code)
	}
}

func TestDashboardFiltersAndSort(t *testing.T) {
	s := newTestServer(t, Config{})

	snap := decode[dashboard.Snapshot](t, do(t, s, http.MethodPut, "/api/dashboard/filters", `{"status":"active"}`))
	if snap.Stats.Visible != 2 || snap.Stats.TotalPairs != 5 {
		t.Fatalf("visible, total = %d, %d; want 2, 5", snap.Stats.Visible, snap.Stats.TotalPairs)
	}
	snap = decode[dashboard.Snapshot](t, do(t, s, http.MethodPost, "/api/dashboard/sort/confidence", ""))
	if snap.Sort.Direction != domain.SortAsc || snap.Rows[0].ID != "pair-4" {
		t.Fatalf("sort = %+v first = %s", snap.Sort, snap.Rows[0].ID)
	}
	snap = decode[dashboard.Snapshot](t, do(t, s, http.MethodDelete, "/api/dashboard/filters", ""))
	if snap.Stats.Visible != 5 {
		t.Fatalf("after reset visible = %d, want 5", snap.Stats.Visible)
	}
	if rec := do(t, s, http.MethodPut, "/api/dashboard/filters", `{"status":"paused"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/dashboard/params/toggle", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("user params toggle = %d, want 403", rec.Code)
	}
}

func TestRateLimitAndCORS(t *testing.T) {
	s := newTestServer(t, Config{RateLimiter: denyLimiter{}, RateLimit: 1, RateWindow: time.Minute, CORSOrigins: []string{"http://localhost:3000"}})

	if rec := do(t, s, http.MethodGet, "/api/pairs", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("limited status = %d, want 429", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	rec := do(t, s, http.MethodOptions, "/api/pairs", "", "Origin", "http://localhost:3000")
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight = %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestExportUnavailableAndNav(t *testing.T) {
	s := newTestServer(t, Config{Admin: true})
	if rec := do(t, s, http.MethodPost, "/api/export", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("export status = %d, want 503", rec.Code)
	}

	nav := decode[struct {
		Tabs []dashboard.NavItem `json:"tabs"`
	}](t, do(t, s, http.MethodGet, "/api/nav?path=/api-management", ""))
	for _, tab := range nav.Tabs {
		if tab.Active != (tab.Label == "Settings") {
			t.Fatalf("tab %s active = %v", tab.Label, tab.Active)
		}
	}
}
