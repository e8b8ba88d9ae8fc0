package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies the prediction-market platform a listing trades on.
type Venue string

const (
	VenuePolymarket Venue = "Polymarket"
	VenueKalshi     Venue = "Kalshi"
	VenueBetfair    Venue = "Betfair"
	VenueManifold   Venue = "Manifold"
)

// Venues lists every supported venue in display order.
var Venues = []Venue{VenuePolymarket, VenueKalshi, VenueBetfair, VenueManifold}

// ParseVenue resolves a venue name case-insensitively.
func ParseVenue(s string) (Venue, error) {
	for _, v := range Venues {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown venue %q", ErrInvalidPair, s)
}

// Category is the topical bucket a pair belongs to.
type Category string

const (
	CategoryPolitics      Category = "Politics"
	CategorySports        Category = "Sports"
	CategoryEconomics     Category = "Economics"
	CategoryTechnology    Category = "Technology"
	CategoryEntertainment Category = "Entertainment"
	CategoryWeather       Category = "Weather"
)

// Categories lists every supported category in display order.
var Categories = []Category{
	CategoryPolitics, CategorySports, CategoryEconomics,
	CategoryTechnology, CategoryEntertainment, CategoryWeather,
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidPair, s)
}

// PairStatus is the review state of a market pair.
type PairStatus string

const (
	PairStatusActive     PairStatus = "active"
	PairStatusPending    PairStatus = "pending"
	PairStatusOverridden PairStatus = "overridden"
	PairStatusRejected   PairStatus = "rejected"
)

// PairStatuses lists every pair status.
var PairStatuses = []PairStatus{
	PairStatusActive, PairStatusPending, PairStatusOverridden, PairStatusRejected,
}

// Valid reports whether s is a known status.
func (s PairStatus) Valid() bool {
	for _, v := range PairStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParsePairStatus resolves a status name case-insensitively.
func ParsePairStatus(s string) (PairStatus, error) {
	st := PairStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidPair, s)
	}
	return st, nil
}

// MarketListing is one side of a pair: a single market on a single venue.
type MarketListing struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Venue       Venue           `json:"venue"`
	Price       decimal.Decimal `json:"price"`
	Volume      string          `json:"volume"`
}

// MarketPair is a proposed correspondence between two listings on different
// venues that are believed to resolve on the same real-world event.
type MarketPair struct {
	ID             string        `json:"id"`
	Market1        MarketListing `json:"market1"`
	Market2        MarketListing `json:"market2"`
	Confidence     int           `json:"confidence"`
	Category       Category      `json:"category"`
	Status         PairStatus    `json:"status"`
	LastModified   time.Time     `json:"last_modified"`
	OverrideReason string        `json:"override_reason,omitempty"`
}

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// ClampConfidence forces c into the valid confidence range.
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Validate checks the structural invariants of a pair.
func (p MarketPair) Validate() error {
	var errs []string
	if strings.TrimSpace(p.Market1.Title) == "" || strings.TrimSpace(p.Market2.Title) == "" {
		errs = append(errs, "both market titles are required")
	}
	if _, err := ParseVenue(string(p.Market1.Venue)); err != nil {
		errs = append(errs, fmt.Sprintf("market1 venue %q unknown", p.Market1.Venue))
	}
	if _, err := ParseVenue(string(p.Market2.Venue)); err != nil {
		errs = append(errs, fmt.Sprintf("market2 venue %q unknown", p.Market2.Venue))
	}
	if p.Market1.Venue != "" && p.Market1.Venue == p.Market2.Venue {
		errs = append(errs, "markets must be on different venues")
	}
	if p.Confidence < MinConfidence || p.Confidence > MaxConfidence {
		errs = append(errs, fmt.Sprintf("confidence %d outside [0,100]", p.Confidence))
	}
	if _, err := ParseCategory(string(p.Category)); err != nil {
		errs = append(errs, fmt.Sprintf("category %q unknown", p.Category))
	}
	if !p.Status.Valid() {
		errs = append(errs, fmt.Sprintf("status %q unknown", p.Status))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPair, strings.Join(errs, "; "))
	}
	return nil
}

// HasVenue reports whether either listing trades on v.
func (p MarketPair) HasVenue(v Venue) bool {
	return p.Market1.Venue == v || p.Market2.Venue == v
}

// Spread is the absolute price difference between the two listings.
func (p MarketPair) Spread() decimal.Decimal {
	return p.Market1.Price.Sub(p.Market2.Price).Abs()
}
