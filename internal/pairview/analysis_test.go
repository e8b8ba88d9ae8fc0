package pairview

import (
	"testing"
	"time"

	"github.com/alanyoungcy/arblens/internal/store/seed"
)

func TestFactors(t *testing.T) {
	p := seed.Pairs()[0]
	factors := Factors(p)

	if len(factors) != 5 {
		t.Fatalf("len(factors) = %d, want 5", len(factors))
	}
	weights := 0
	for _, f := range factors {
		weights += f.Weight
		if f.Score < 0 || f.Score > 100 {
			t.Fatalf("%s score = %d, out of range", f.Factor, f.Score)
		}
	}
	if weights != 100 {
		t.Fatalf("weights sum = %d, want 100", weights)
	}

	byName := map[string]ConfidenceFactor{}
	for _, f := range factors {
		byName[f.Factor] = f
	}
	if got := byName["Price Agreement"].Score; got != 94 {
		t.Fatalf("price agreement = %d, want 94", got)
	}
	if got := byName["Historical Correlation"].Score; got != 94 {
		t.Fatalf("historical correlation = %d, want 94", got)
	}
	if got := byName["Title Similarity"].Weight; got != 30 {
		t.Fatalf("title weight = %d, want 30", got)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Bitcoin to 100K", "bitcoin TO 100k!", 100},
		{"", "", 100},
		{"alpha beta", "gamma delta", 0},
		{"a b c d", "a b", 50},
	}
	for _, tt := range tests {
		if got := jaccard(tt.a, tt.b); got != tt.want {
			t.Fatalf("jaccard(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWeightedScore(t *testing.T) {
	got := WeightedScore([]ConfidenceFactor{
		{Score: 100, Weight: 50},
		{Score: 50, Weight: 50},
	})
	if got != 75 {
		t.Fatalf("WeightedScore = %d, want 75", got)
	}
	if got := WeightedScore(nil); got != 0 {
		t.Fatalf("WeightedScore(nil) = %d, want 0", got)
	}
}

func TestPriceHistory(t *testing.T) {
	p := seed.Pairs()[0]
	h := PriceHistory(p)
	if len(h) != 7 {
		t.Fatalf("len = %d, want 7", len(h))
	}
	for i := 1; i < len(h); i++ {
		if gap := h[i].At.Sub(h[i-1].At); gap != 4*time.Hour {
			t.Fatalf("gap %d = %v, want 4h", i, gap)
		}
	}
	last := h[len(h)-1]
	if !last.Market1.Equal(p.Market1.Price) || !last.Market2.Equal(p.Market2.Price) {
		t.Fatalf("last point = %s/%s, want current prices", last.Market1, last.Market2)
	}
	if got := h[0].Market1.String(); got != "0.6" {
		t.Fatalf("first market1 = %s, want 0.6", got)
	}
	if last.Label != "15:00" {
		t.Fatalf("last label = %q, want 15:00", last.Label)
	}
}

func TestPriceHistoryNeverNegative(t *testing.T) {
	p := seed.Pairs()[0]
	p.Market1.Price = p.Market1.Price.Sub(p.Market1.Price)
	for _, pt := range PriceHistory(p) {
		if pt.Market1.IsNegative() {
			t.Fatalf("negative price at %s", pt.Label)
		}
	}
}

func TestAnalyze(t *testing.T) {
	p := seed.Pairs()[1]
	a := Analyze(p)
	if a.Pair.ID != p.ID {
		t.Fatalf("pair id = %s", a.Pair.ID)
	}
	if !a.Spread.Equal(p.Spread()) {
		t.Fatalf("spread = %s, want %s", a.Spread, p.Spread())
	}
	if a.Weighted != WeightedScore(a.Factors) {
		t.Fatalf("weighted = %d", a.Weighted)
	}
}
