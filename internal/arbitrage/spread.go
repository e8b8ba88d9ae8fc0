package arbitrage

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// SpreadConfig configures the cross-venue spread strategy.
type SpreadConfig struct {
	// MinConfidence skips pairs the matcher is unsure about.
	MinConfidence  int
	MinSpreadBps   float64
	EstFeeBps      float64
	EstSlippageBps float64
}

// Spread flags pairs whose listings trade at different prices. The gap is
// measured in basis points of the mid price and must survive the estimated
// fees and slippage.
type Spread struct {
	cfg    SpreadConfig
	logger *slog.Logger
}

// NewSpread creates a spread strategy.
func NewSpread(cfg SpreadConfig, logger *slog.Logger) *Spread {
	return &Spread{cfg: cfg, logger: logger.With(slog.String("arb_strategy", "spread"))}
}

// Name returns the strategy identifier.
func (s *Spread) Name() string { return "spread" }

var bpsFactor = decimal.NewFromInt(10000)

// Detect returns an opportunity for p when it is tradable, confident enough
// and its net edge is positive.
func (s *Spread) Detect(ctx context.Context, p domain.MarketPair, at time.Time) (Opportunity, bool) {
	switch p.Status {
	case domain.PairStatusActive, domain.PairStatusOverridden:
	default:
		return Opportunity{}, false
	}
	if p.Confidence < s.cfg.MinConfidence {
		return Opportunity{}, false
	}

	p1, p2 := p.Market1.Price, p.Market2.Price
	if !p1.IsPositive() || !p2.IsPositive() {
		return Opportunity{}, false
	}
	spread := p.Spread()
	if spread.IsZero() {
		return Opportunity{}, false
	}
	mid := p1.Add(p2).Div(decimal.NewFromInt(2))

	grossBps := spread.Div(mid).Mul(bpsFactor).InexactFloat64()
	if grossBps < s.cfg.MinSpreadBps {
		return Opportunity{}, false
	}
	netBps := grossBps - s.cfg.EstFeeBps - s.cfg.EstSlippageBps
	if netBps <= 0 {
		return Opportunity{}, false
	}

	opp := Opportunity{
		PairID:       p.ID,
		Confidence:   p.Confidence,
		Spread:       spread,
		GrossEdgeBps: grossBps,
		NetEdgeBps:   netBps,
		BuyVenue:     p.Market1.Venue,
		SellVenue:    p.Market2.Venue,
		DetectedAt:   at,
	}
	if p2.LessThan(p1) {
		opp.BuyVenue, opp.SellVenue = p.Market2.Venue, p.Market1.Venue
	}
	s.logger.DebugContext(ctx, "spread opportunity detected",
		slog.String("pair_id", p.ID),
		slog.Float64("gross_edge_bps", grossBps),
		slog.Float64("net_edge_bps", netBps),
	)
	return opp, true
}
