package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/pairview"
)

// OverrideFunc persists a manual confidence override.
type OverrideFunc func(ctx context.Context, id string, confidence int, reason string) (domain.MarketPair, error)

// DetailState is the serializable view of the detail panel.
type DetailState struct {
	Visible         bool               `json:"visible"`
	Pair            *domain.MarketPair `json:"pair,omitempty"`
	Analysis        *pairview.Analysis `json:"analysis,omitempty"`
	Editing         bool               `json:"editing"`
	DraftConfidence int                `json:"draft_confidence"`
	DraftReason     string             `json:"draft_reason"`
	Saving          bool               `json:"saving"`
}

// DetailPanel shows one pair and edits its confidence override.
type DetailPanel struct {
	mu   sync.Mutex
	save OverrideFunc

	visible bool
	pair    *domain.MarketPair
	editing bool
	draftC  int
	draftR  string
	saving  bool
	token   uint64
}

// NewDetailPanel creates a hidden panel that saves through save.
func NewDetailPanel(save OverrideFunc) *DetailPanel {
	return &DetailPanel{save: save}
}

// SetPair shows p. Switching to another pair abandons an open edit and
// orphans a save still in flight.
func (d *DetailPanel) SetPair(p domain.MarketPair) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pair != nil && d.pair.ID != p.ID {
		d.editing = false
		d.abandonSave()
	}
	d.pair = &p
}

// abandonSave makes the in-flight save's result stale. Callers hold d.mu.
func (d *DetailPanel) abandonSave() {
	if d.saving {
		d.saving = false
		d.token++
	}
}

// PairID returns the shown pair's id, or "".
func (d *DetailPanel) PairID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pair == nil {
		return ""
	}
	return d.pair.ID
}

// Toggle flips visibility and returns the new value.
func (d *DetailPanel) Toggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = !d.visible
	return d.visible
}

// SetVisible shows or hides the panel.
func (d *DetailPanel) SetVisible(v bool) {
	d.mu.Lock()
	d.visible = v
	d.mu.Unlock()
}

// BeginEdit enters edit mode seeded from the pair's confidence.
func (d *DetailPanel) BeginEdit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pair == nil {
		return fmt.Errorf("%w: no pair selected", domain.ErrNotFound)
	}
	d.editing = true
	d.draftC = d.pair.Confidence
	d.draftR = ""
	return nil
}

// SetDraft updates the draft, clamping confidence to [0,100].
func (d *DetailPanel) SetDraft(confidence int, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.editing {
		return domain.ErrNotEditing
	}
	d.draftC = domain.ClampConfidence(confidence)
	d.draftR = reason
	return nil
}

// CancelEdit leaves edit mode. A save in flight completes on the backend
// but its result is not applied to the panel.
func (d *DetailPanel) CancelEdit() {
	d.mu.Lock()
	d.editing = false
	d.abandonSave()
	d.mu.Unlock()
}

// Save persists the draft. Edit mode ends whatever the outcome.
func (d *DetailPanel) Save(ctx context.Context) (domain.MarketPair, error) {
	d.mu.Lock()
	if !d.editing || d.pair == nil {
		d.mu.Unlock()
		return domain.MarketPair{}, domain.ErrNotEditing
	}
	if d.saving {
		d.mu.Unlock()
		return domain.MarketPair{}, domain.ErrBusy
	}
	d.editing = false
	d.saving = true
	d.token++
	token := d.token
	id, conf, reason := d.pair.ID, d.draftC, d.draftR
	d.mu.Unlock()

	p, err := d.save(ctx, id, conf, reason)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.token != token {
		return p, domain.ErrStale
	}
	d.saving = false
	if err != nil {
		return domain.MarketPair{}, err
	}
	if d.pair != nil && d.pair.ID == p.ID {
		d.pair = &p
	}
	return p, nil
}

// State returns a copy of the panel state including the derived analysis.
func (d *DetailPanel) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := DetailState{
		Visible:         d.visible,
		Editing:         d.editing,
		DraftConfidence: d.draftC,
		DraftReason:     d.draftR,
		Saving:          d.saving,
	}
	if d.pair != nil {
		p := *d.pair
		a := pairview.Analyze(p)
		st.Pair = &p
		st.Analysis = &a
	}
	return st
}
