package dashboard

import (
	"slices"

	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/pairview"
)

// Table holds the pair list with its filters, search, sort and row
// selection. The derived view is memoized against a revision counter bumped
// by every change that can affect it. Table is not safe for concurrent use;
// the Controller serializes access.
type Table struct {
	pairs     []domain.MarketPair
	filters   domain.FilterState
	search    string
	sort      domain.SortConfig
	selection pairview.Selection

	rev     uint64
	viewRev uint64
	view    []domain.MarketPair
}

// NewTable creates an empty table with neutral filters and default sort.
func NewTable() *Table {
	return &Table{
		filters: domain.DefaultFilterState(),
		sort:    domain.DefaultSort(),
		rev:     1,
	}
}

func (t *Table) touch() { t.rev++ }

// Revision identifies the current derived view.
func (t *Table) Revision() uint64 { return t.rev }

// SetPairs replaces the pair list. Selected ids that no longer exist are
// dropped from the selection.
func (t *Table) SetPairs(pairs []domain.MarketPair) {
	t.pairs = slices.Clone(pairs)
	t.selection.Retain(pairview.IDs(t.pairs))
	t.touch()
}

// Merge replaces stored pairs by id and appends unknown ones.
func (t *Table) Merge(updated []domain.MarketPair) {
	if len(updated) == 0 {
		return
	}
	index := make(map[string]int, len(t.pairs))
	for i, p := range t.pairs {
		index[p.ID] = i
	}
	for _, p := range updated {
		if i, ok := index[p.ID]; ok {
			t.pairs[i] = p
			continue
		}
		index[p.ID] = len(t.pairs)
		t.pairs = append(t.pairs, p)
	}
	t.touch()
}

// Pairs returns a copy of the unfiltered pair list.
func (t *Table) Pairs() []domain.MarketPair { return slices.Clone(t.pairs) }

// Pair returns the pair with id.
func (t *Table) Pair(id string) (domain.MarketPair, bool) {
	for _, p := range t.pairs {
		if p.ID == id {
			return p, true
		}
	}
	return domain.MarketPair{}, false
}

// Filters returns the current filter state.
func (t *Table) Filters() domain.FilterState { return t.filters }

// SetFilters validates and applies f.
func (t *Table) SetFilters(f domain.FilterState) error {
	norm, err := f.Normalize()
	if err != nil {
		return err
	}
	t.filters = norm
	t.touch()
	return nil
}

// Search returns the current search string.
func (t *Table) Search() string { return t.search }

// SetSearch applies a title search exactly as typed.
func (t *Table) SetSearch(s string) {
	t.search = s
	t.touch()
}

// ResetFilters restores the neutral filters and clears the search.
func (t *Table) ResetFilters() {
	t.filters = domain.DefaultFilterState()
	t.search = ""
	t.touch()
}

// Sort returns the current sort.
func (t *Table) Sort() domain.SortConfig { return t.sort }

// ToggleSort flips or switches the sort key.
func (t *Table) ToggleSort(key domain.SortKey) domain.SortConfig {
	t.sort = t.sort.Toggle(key)
	t.touch()
	return t.sort
}

// View returns the filtered, sorted rows. Callers must not mutate it.
func (t *Table) View() []domain.MarketPair {
	if t.viewRev != t.rev {
		t.view = pairview.Derive(t.pairs, t.filters, t.search, t.sort)
		t.viewRev = t.rev
	}
	return t.view
}

// ToggleRow flips one row's selection and reports whether it is now
// selected.
func (t *Table) ToggleRow(id string) bool { return t.selection.Toggle(id) }

// SelectAllVisible selects exactly the visible rows, or clears the
// selection when they are all selected already.
func (t *Table) SelectAllVisible() { t.selection.SelectAllVisible(pairview.IDs(t.View())) }

// AllVisibleSelected reports whether the header checkbox is checked.
func (t *Table) AllVisibleSelected() bool { return t.selection.AllSelected(pairview.IDs(t.View())) }

// ClearSelection empties the selection.
func (t *Table) ClearSelection() { t.selection.Clear() }

// IsSelected reports whether id is selected.
func (t *Table) IsSelected(id string) bool { return t.selection.Has(id) }

// Selected returns the selected ids in order.
func (t *Table) Selected() []string { return t.selection.IDs() }
