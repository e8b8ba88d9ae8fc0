// Package arbitrage detects cross-venue price gaps on reviewed market pairs
// and announces them as opportunity notifications.
package arbitrage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Opportunity is a price gap between the two listings of one pair.
type Opportunity struct {
	PairID       string
	Confidence   int
	Spread       decimal.Decimal
	GrossEdgeBps float64
	NetEdgeBps   float64
	// BuyVenue is the cheaper side.
	BuyVenue   domain.Venue
	SellVenue  domain.Venue
	DetectedAt time.Time
}

// Strategy decides whether a pair currently offers an opportunity.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, p domain.MarketPair, at time.Time) (Opportunity, bool)
}
