package dashboard

import (
	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/pairview"
)

// Row is one table row.
type Row struct {
	domain.MarketPair
	Selected bool `json:"selected"`
	Current  bool `json:"current"`
}

// Stats are the header counters. TotalPairs counts every pair regardless of
// filters; Visible counts the filtered view.
type Stats struct {
	TotalPairs int                       `json:"total_pairs"`
	Visible    int                       `json:"visible"`
	Selected   int                       `json:"selected"`
	ByStatus   map[domain.PairStatus]int `json:"by_status"`
}

// Snapshot is the full serializable session state.
type Snapshot struct {
	Revision       uint64                `json:"revision"`
	Role           Role                  `json:"role"`
	Stats          Stats                 `json:"stats"`
	Filters        domain.FilterState    `json:"filters"`
	Search         string                `json:"search"`
	Sort           domain.SortConfig     `json:"sort"`
	Rows           []Row                 `json:"rows"`
	Selection      []string              `json:"selection"`
	AllSelected    bool                  `json:"all_selected"`
	SelectedPairID string                `json:"selected_pair_id,omitempty"`
	Detail         DetailState           `json:"detail"`
	Dialog         BulkDialogState       `json:"dialog"`
	Params         ParamsState           `json:"params"`
	Notifications  []domain.Notification `json:"notifications"`
}

// Snapshot captures the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	view := c.table.View()
	rows := make([]Row, len(view))
	for i, p := range view {
		rows[i] = Row{MarketPair: p, Selected: c.table.IsSelected(p.ID), Current: p.ID == c.selected}
	}
	all := c.table.Pairs()
	selection := c.table.Selected()
	snap := Snapshot{
		Revision: c.table.Revision(),
		Role:     c.role,
		Stats: Stats{
			TotalPairs: len(all),
			Visible:    len(view),
			Selected:   len(selection),
			ByStatus:   pairview.StatusCounts(all),
		},
		Filters:        c.table.Filters(),
		Search:         c.table.Search(),
		Sort:           c.table.Sort(),
		Rows:           rows,
		Selection:      selection,
		AllSelected:    c.table.AllVisibleSelected(),
		SelectedPairID: c.selected,
	}
	c.mu.Unlock()

	snap.Detail = c.detail.State()
	snap.Dialog = c.dialog.State()
	snap.Params = c.params.State()
	snap.Notifications = c.notes.List()
	if snap.Notifications == nil {
		snap.Notifications = []domain.Notification{}
	}
	return snap
}
