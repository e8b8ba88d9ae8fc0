package pairview

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// ConfidenceFactor is one weighted input to a pair's match confidence.
type ConfidenceFactor struct {
	Factor string `json:"factor"`
	Score  int    `json:"score"`
	Weight int    `json:"weight"`
}

// PricePoint is one sample of the display-only price history.
type PricePoint struct {
	At      time.Time       `json:"at"`
	Label   string          `json:"label"`
	Market1 decimal.Decimal `json:"market1"`
	Market2 decimal.Decimal `json:"market2"`
}

// Analysis bundles the derived detail data for one pair.
type Analysis struct {
	Pair         domain.MarketPair  `json:"pair"`
	Factors      []ConfidenceFactor `json:"factors"`
	Weighted     int                `json:"weighted_score"`
	Spread       decimal.Decimal    `json:"spread"`
	PriceHistory []PricePoint       `json:"price_history"`
}

// Analyze computes the detail panel data for p.
func Analyze(p domain.MarketPair) Analysis {
	factors := Factors(p)
	return Analysis{
		Pair:         p,
		Factors:      factors,
		Weighted:     WeightedScore(factors),
		Spread:       p.Spread(),
		PriceHistory: PriceHistory(p),
	}
}

// Factors scores the pair's listings against each other. Weights sum to 100.
func Factors(p domain.MarketPair) []ConfidenceFactor {
	spread := p.Spread().Mul(decimal.NewFromInt(200)).IntPart()
	return []ConfidenceFactor{
		{Factor: "Title Similarity", Score: jaccard(p.Market1.Title, p.Market2.Title), Weight: 30},
		{Factor: "Description Match", Score: jaccard(p.Market1.Description, p.Market2.Description), Weight: 25},
		{Factor: "Category Alignment", Score: 100, Weight: 15},
		{Factor: "Price Agreement", Score: domain.ClampConfidence(100 - int(spread)), Weight: 15},
		{Factor: "Historical Correlation", Score: domain.ClampConfidence(p.Confidence), Weight: 15},
	}
}

// WeightedScore returns the weight-averaged factor score, rounded.
func WeightedScore(factors []ConfidenceFactor) int {
	var sum, weights int
	for _, f := range factors {
		sum += f.Score * f.Weight
		weights += f.Weight
	}
	if weights == 0 {
		return 0
	}
	return (sum + weights/2) / weights
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[w] = struct{}{}
	}
	return out
}

// jaccard returns the word-set overlap of a and b scaled to [0,100].
func jaccard(a, b string) int {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 100
	}
	inter := 0
	for w := range ta {
		if _, ok := tb[w]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return (inter*100 + union/2) / union
}

const (
	historyPoints   = 7
	historyInterval = 4 * time.Hour
)

// historyOffsets shapes the series; the last point equals the current price.
var historyOffsets = []string{"-0.07", "-0.05", "-0.03", "-0.01", "-0.04", "-0.02", "0"}

// PriceHistory returns seven points four hours apart ending at the pair's
// last modification, each market's curve ending at its current price.
func PriceHistory(p domain.MarketPair) []PricePoint {
	end := p.LastModified.UTC().Truncate(time.Hour)
	start := end.Add(-historyInterval * (historyPoints - 1))
	out := make([]PricePoint, historyPoints)
	for i := range out {
		off := decimal.RequireFromString(historyOffsets[i])
		at := start.Add(historyInterval * time.Duration(i))
		out[i] = PricePoint{
			At:      at,
			Label:   at.Format("15:04"),
			Market1: nonNegative(p.Market1.Price.Add(off)),
			Market2: nonNegative(p.Market2.Price.Add(off)),
		}
	}
	return out
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
