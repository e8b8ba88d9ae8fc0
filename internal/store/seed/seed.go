// Package seed holds the initial market pair dataset used to bootstrap an
// empty store and to drive tests.
package seed

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arblens/internal/domain"
)

func listing(title, desc string, venue domain.Venue, price, volume string) domain.MarketListing {
	return domain.MarketListing{
		Title:       title,
		Description: desc,
		Venue:       venue,
		Price:       decimal.RequireFromString(price),
		Volume:      volume,
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Pairs returns a fresh copy of the seed dataset.
func Pairs() []domain.MarketPair {
	return []domain.MarketPair{
		{
			ID: "pair-1",
			Market1: listing("Will Donald Trump win the 2024 US Presidential Election?",
				"Resolves YES if Donald Trump wins the 2024 US Presidential Election",
				domain.VenuePolymarket, "0.67", "2.4M"),
			Market2: listing("Donald Trump to be elected US President in 2024",
				"Market resolves to YES if Donald Trump is elected President in 2024",
				domain.VenueKalshi, "0.64", "1.8M"),
			Confidence:   94,
			Category:     domain.CategoryPolitics,
			Status:       domain.PairStatusActive,
			LastModified: ts("2025-01-09T15:30:00Z"),
		},
		{
			ID: "pair-2",
			Market1: listing("Will Bitcoin reach $100,000 by end of 2025?",
				"Resolves YES if Bitcoin price reaches $100,000 USD by December 31, 2025",
				domain.VenueManifold, "0.42", "890K"),
			Market2: listing("Bitcoin to hit $100K in 2025",
				"YES if Bitcoin reaches $100,000 at any point during 2025",
				domain.VenueBetfair, "0.38", "1.2M"),
			Confidence:   87,
			Category:     domain.CategoryEconomics,
			Status:       domain.PairStatusPending,
			LastModified: ts("2025-01-09T14:15:00Z"),
		},
		{
			ID: "pair-3",
			Market1: listing("Will OpenAI release GPT-5 in 2025?",
				"Resolves YES if OpenAI officially releases GPT-5 during 2025",
				domain.VenuePolymarket, "0.73", "1.5M"),
			Market2: listing("GPT-5 launch in 2025",
				"Market on whether OpenAI will launch GPT-5 in 2025",
				domain.VenueManifold, "0.69", "650K"),
			Confidence:   91,
			Category:     domain.CategoryTechnology,
			Status:       domain.PairStatusOverridden,
			LastModified: ts("2025-01-09T13:45:00Z"),
		},
		{
			ID: "pair-4",
			Market1: listing("Will the Lakers make the NBA playoffs in 2025?",
				"Resolves YES if LA Lakers qualify for 2025 NBA playoffs",
				domain.VenueBetfair, "0.58", "2.1M"),
			Market2: listing("Lakers playoff qualification 2025",
				"Will the Los Angeles Lakers make the 2025 NBA playoffs",
				domain.VenueKalshi, "0.55", "1.7M"),
			Confidence:   76,
			Category:     domain.CategorySports,
			Status:       domain.PairStatusActive,
			LastModified: ts("2025-01-09T12:20:00Z"),
		},
		{
			ID: "pair-5",
			Market1: listing("Will there be a major earthquake in California in 2025?",
				"Resolves YES if magnitude 7.0+ earthquake occurs in California during 2025",
				domain.VenueManifold, "0.15", "420K"),
			Market2: listing("California earthquake 7.0+ in 2025",
				"Major earthquake (7.0+) to hit California in 2025",
				domain.VenuePolymarket, "0.12", "380K"),
			Confidence:   68,
			Category:     domain.CategoryWeather,
			Status:       domain.PairStatusRejected,
			LastModified: ts("2025-01-09T11:10:00Z"),
		},
	}
}
