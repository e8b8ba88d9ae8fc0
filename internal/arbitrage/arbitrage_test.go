package arbitrage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arblens/internal/cache/memory"
	"github.com/alanyoungcy/arblens/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func pair(id string, conf int, status domain.PairStatus, p1, p2 string) domain.MarketPair {
	return domain.MarketPair{
		ID:         id,
		Confidence: conf,
		Status:     status,
		Market1:    domain.MarketListing{Venue: domain.VenuePolymarket, Price: decimal.RequireFromString(p1)},
		Market2:    domain.MarketListing{Venue: domain.VenueKalshi, Price: decimal.RequireFromString(p2)},
	}
}

func TestSpreadDetect(t *testing.T) {
	s := NewSpread(SpreadConfig{MinConfidence: 80, MinSpreadBps: 100, EstFeeBps: 50}, testLogger)
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pair    domain.MarketPair
		want    bool
		wantBuy domain.Venue
		wantNet float64
	}{
		// |0.60-0.40| / 0.50 = 4000 bps gross.
		{"wide gap", pair("a", 90, domain.PairStatusActive, "0.60", "0.40"), true, domain.VenueKalshi, 3950},
		{"overridden counts", pair("b", 90, domain.PairStatusOverridden, "0.40", "0.60"), true, domain.VenuePolymarket, 3950},
		{"pending skipped", pair("c", 90, domain.PairStatusPending, "0.60", "0.40"), false, "", 0},
		{"rejected skipped", pair("d", 90, domain.PairStatusRejected, "0.60", "0.40"), false, "", 0},
		{"low confidence", pair("e", 79, domain.PairStatusActive, "0.60", "0.40"), false, "", 0},
		{"no gap", pair("f", 90, domain.PairStatusActive, "0.50", "0.50"), false, "", 0},
		// 0.005 / 0.5025 ≈ 99.5 bps, below the minimum.
		{"below min spread", pair("g", 90, domain.PairStatusActive, "0.505", "0.500"), false, "", 0},
		{"zero price", pair("h", 90, domain.PairStatusActive, "0", "0.40"), false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp, ok := s.Detect(context.Background(), tt.pair, at)
			if ok != tt.want {
				t.Fatalf("Detect ok = %v, want %v", ok, tt.want)
			}
			if !ok {
				return
			}
			if opp.BuyVenue != tt.wantBuy {
				t.Fatalf("buy venue = %s, want %s", opp.BuyVenue, tt.wantBuy)
			}
			if math.Abs(opp.NetEdgeBps-tt.wantNet) > 0.001 {
				t.Fatalf("net edge = %v, want %v", opp.NetEdgeBps, tt.wantNet)
			}
			if !opp.DetectedAt.Equal(at) {
				t.Fatalf("detected at = %v", opp.DetectedAt)
			}
		})
	}
}

func TestSpreadFeesEatEdge(t *testing.T) {
	s := NewSpread(SpreadConfig{MinSpreadBps: 10, EstFeeBps: 3000, EstSlippageBps: 1000}, testLogger)
	if _, ok := s.Detect(context.Background(), pair("a", 90, domain.PairStatusActive, "0.60", "0.40"), time.Now()); ok {
		t.Fatal("opportunity with non-positive net edge")
	}
}

func TestDedup(t *testing.T) {
	d := NewDedup(time.Minute)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if d.IsDuplicate("p", t0) {
		t.Fatal("first sighting is a duplicate")
	}
	if !d.IsDuplicate("p", t0.Add(30*time.Second)) {
		t.Fatal("repeat within ttl not a duplicate")
	}
	if d.IsDuplicate("p", t0.Add(2*time.Minute)) {
		t.Fatal("repeat after ttl is a duplicate")
	}
	d.Forget("p")
	if d.IsDuplicate("p", t0.Add(2*time.Minute)) {
		t.Fatal("forgotten id is a duplicate")
	}
	d.Cleanup(t0.Add(10 * time.Minute))
	if len(d.seen) != 0 {
		t.Fatalf("seen = %d after cleanup", len(d.seen))
	}
}

type staticPairs []domain.MarketPair

func (s staticPairs) List(context.Context) ([]domain.MarketPair, error) { return s, nil }

func TestDetectorScanPublishesOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus()
	sub, err := bus.Subscribe(ctx, domain.ChannelOpportunity)
	if err != nil {
		t.Fatal(err)
	}

	pairs := staticPairs{
		pair("pair-1", 94, domain.PairStatusActive, "0.67", "0.52"),
		pair("pair-2", 87, domain.PairStatusPending, "0.70", "0.40"),
	}
	d := NewDetector(DetectorConfig{
		Strategy: NewSpread(SpreadConfig{MinConfidence: 90, MinSpreadBps: 100}, testLogger),
		Pairs:    pairs,
		Bus:      bus,
		Logger:   testLogger,
	})

	got, err := d.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].PairID != "pair-1" {
		t.Fatalf("published = %+v", got)
	}

	select {
	case payload := <-sub:
		var n domain.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			t.Fatal(err)
		}
		if n.Type != domain.NotifyOpportunity || n.Data == nil || n.Data.Pair != "pair-1" {
			t.Fatalf("notification = %+v", n)
		}
		if n.Action == nil || n.Action.Label != domain.ReviewPairAction {
			t.Fatalf("action = %+v", n.Action)
		}
	case <-time.After(time.Second):
		t.Fatal("no opportunity published")
	}

	again, err := d.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Fatalf("second scan republished %d", len(again))
	}
}
