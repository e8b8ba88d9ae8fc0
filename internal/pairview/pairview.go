// Package pairview derives the ordered, filtered table view of market pairs
// and tracks row selection over it. Everything here is pure: inputs are never
// mutated and results are fresh slices.
package pairview

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Matches reports whether p passes the search string and every filter. The
// search is a case-insensitive substring match used as typed, whitespace
// included.
func Matches(p domain.MarketPair, search string, f domain.FilterState) bool {
	if q := strings.ToLower(search); q != "" {
		if !strings.Contains(strings.ToLower(p.Market1.Title), q) &&
			!strings.Contains(strings.ToLower(p.Market2.Title), q) {
			return false
		}
	}

	if f.MinConfidence != nil && p.Confidence < *f.MinConfidence {
		return false
	}

	if len(f.Venues) > 0 {
		found := false
		for _, v := range f.Venues {
			if p.HasVenue(v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if p.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Status != "" && f.Status != domain.StatusAll && string(p.Status) != f.Status {
		return false
	}
	return true
}

// compare orders a and b on key alone, returning -1, 0 or 1.
func compare(a, b domain.MarketPair, key domain.SortKey) int {
	switch key {
	case domain.SortByConfidence:
		return cmpInt(a.Confidence, b.Confidence)
	case domain.SortByLastModified:
		return a.LastModified.Compare(b.LastModified)
	case domain.SortByCategory:
		return strings.Compare(string(a.Category), string(b.Category))
	case domain.SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less orders a before b under s. Ties on the sort key fall back to the pair
// id in the same direction, so a descending order is the exact reverse of
// the ascending one.
func Less(a, b domain.MarketPair, s domain.SortConfig) bool {
	c := compare(a, b, s.Key)
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if s.Direction == domain.SortDesc {
		return c > 0
	}
	return c < 0
}

// Derive returns the pairs that pass the filters, ordered by s.
func Derive(pairs []domain.MarketPair, f domain.FilterState, search string, s domain.SortConfig) []domain.MarketPair {
	out := make([]domain.MarketPair, 0, len(pairs))
	for _, p := range pairs {
		if Matches(p, search, f) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j], s)
	})
	return out
}

// Page slices view for pagination. A non-positive limit returns everything
// from offset on.
func Page(view []domain.MarketPair, limit, offset int) []domain.MarketPair {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(view) {
		return []domain.MarketPair{}
	}
	end := len(view)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]domain.MarketPair, end-offset)
	copy(out, view[offset:end])
	return out
}

// IDs returns the ids of view in order.
func IDs(view []domain.MarketPair) []string {
	ids := make([]string, len(view))
	for i, p := range view {
		ids[i] = p.ID
	}
	return ids
}

// StatusCounts tallies pairs per status.
func StatusCounts(pairs []domain.MarketPair) map[domain.PairStatus]int {
	counts := make(map[domain.PairStatus]int, len(domain.PairStatuses))
	for _, s := range domain.PairStatuses {
		counts[s] = 0
	}
	for _, p := range pairs {
		counts[p.Status]++
	}
	return counts
}
