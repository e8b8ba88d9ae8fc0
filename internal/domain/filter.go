package domain

import (
	"fmt"
	"strings"
)

// StatusAll is the status filter value that passes every pair.
const StatusAll = "all"

// FilterState is the set of table filters. The zero value filters nothing
// except that Status must be StatusAll or a PairStatus; use
// DefaultFilterState for a ready-made neutral filter.
type FilterState struct {
	MinConfidence *int       `json:"min_confidence"`
	Venues        []Venue    `json:"venues"`
	Categories    []Category `json:"categories"`
	Status        string     `json:"status"`
}

// DefaultFilterState returns the neutral filter restored by a reset.
func DefaultFilterState() FilterState {
	return FilterState{
		Venues:     []Venue{},
		Categories: []Category{},
		Status:     StatusAll,
	}
}

// IsDefault reports whether f filters nothing.
func (f FilterState) IsDefault() bool {
	return f.MinConfidence == nil && len(f.Venues) == 0 && len(f.Categories) == 0 &&
		(f.Status == "" || f.Status == StatusAll)
}

// Normalize canonicalizes enum spellings and rejects unknown values.
func (f FilterState) Normalize() (FilterState, error) {
	out := FilterState{
		MinConfidence: f.MinConfidence,
		Venues:        make([]Venue, 0, len(f.Venues)),
		Categories:    make([]Category, 0, len(f.Categories)),
		Status:        StatusAll,
	}
	for _, v := range f.Venues {
		pv, err := ParseVenue(string(v))
		if err != nil {
			return FilterState{}, err
		}
		out.Venues = append(out.Venues, pv)
	}
	for _, c := range f.Categories {
		pc, err := ParseCategory(string(c))
		if err != nil {
			return FilterState{}, err
		}
		out.Categories = append(out.Categories, pc)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Status)); s != "" && s != StatusAll {
		st, err := ParsePairStatus(s)
		if err != nil {
			return FilterState{}, err
		}
		out.Status = string(st)
	}
	if out.MinConfidence != nil {
		v := *out.MinConfidence
		out.MinConfidence = &v
	}
	return out, nil
}

// SortKey names the field a view is ordered by.
type SortKey string

const (
	SortByConfidence   SortKey = "confidence"
	SortByLastModified SortKey = "last_modified"
	SortByCategory     SortKey = "category"
	SortByStatus       SortKey = "status"
	SortByID           SortKey = "id"
)

// ParseSortKey resolves a sort key, accepting the camelCase spelling of
// last_modified.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.TrimSpace(s) {
	case "confidence":
		return SortByConfidence, nil
	case "last_modified", "lastModified":
		return SortByLastModified, nil
	case "category":
		return SortByCategory, nil
	case "status":
		return SortByStatus, nil
	case "id":
		return SortByID, nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", ErrInvalidPair, s)
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortConfig is the single active sort of a view.
type SortConfig struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort orders by confidence, highest first.
func DefaultSort() SortConfig {
	return SortConfig{Key: SortByConfidence, Direction: SortDesc}
}

// Toggle returns the sort after a click on key: re-clicking the active key
// while ascending flips it to descending, anything else sorts key ascending.
func (s SortConfig) Toggle(key SortKey) SortConfig {
	if s.Key == key && s.Direction == SortAsc {
		return SortConfig{Key: key, Direction: SortDesc}
	}
	return SortConfig{Key: key, Direction: SortAsc}
}
