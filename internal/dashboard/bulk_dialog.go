package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// BulkHandler performs a confirmed bulk action.
type BulkHandler func(ctx context.Context, action domain.BulkAction, ids []string, reason string) error

// DialogCopy is the confirmation text shown for an action.
type DialogCopy struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ConfirmLabel string `json:"confirm_label"`
}

// Describe returns the confirmation copy for action.
func Describe(action domain.BulkAction) DialogCopy {
	switch action {
	case domain.BulkApprove:
		return DialogCopy{
			Title:        "Approve Market Pairs",
			Description:  "This will approve the selected market pairs and make them active for arbitrage detection.",
			ConfirmLabel: "Approve Pairs",
		}
	case domain.BulkReject:
		return DialogCopy{
			Title:        "Reject Market Pairs",
			Description:  "This will reject the selected market pairs and exclude them from future matching.",
			ConfirmLabel: "Reject Pairs",
		}
	case domain.BulkLink:
		return DialogCopy{
			Title:        "Link Market Pairs",
			Description:  "This will manually link the selected market pairs for arbitrage monitoring.",
			ConfirmLabel: "Link Pairs",
		}
	case domain.BulkUnlink:
		return DialogCopy{
			Title:        "Unlink Market Pairs",
			Description:  "This will unlink the selected market pairs and stop arbitrage monitoring.",
			ConfirmLabel: "Unlink Pairs",
		}
	}
	return DialogCopy{
		Title:        "Bulk Action",
		Description:  "Perform bulk action on selected market pairs.",
		ConfirmLabel: "Confirm",
	}
}

// BulkDialogState is the serializable view of the dialog.
type BulkDialogState struct {
	Open        bool              `json:"open"`
	Action      domain.BulkAction `json:"action,omitempty"`
	IDs         []string          `json:"ids"`
	Reason      string            `json:"reason"`
	ShowsReason bool              `json:"shows_reason"`
	Processing  bool              `json:"processing"`
	LastError   string            `json:"last_error,omitempty"`
	Copy        DialogCopy        `json:"copy"`
}

// BulkDialog is the single confirmation slot for bulk actions. Only one
// confirm may be in flight; closing the dialog cancels it and any late
// result is discarded.
type BulkDialog struct {
	mu      sync.Mutex
	handler BulkHandler

	open       bool
	action     domain.BulkAction
	ids        []string
	reason     string
	processing bool
	lastErr    string

	token  uint64
	cancel context.CancelFunc
}

// NewBulkDialog creates a closed dialog that confirms through handler.
func NewBulkDialog(handler BulkHandler) *BulkDialog {
	return &BulkDialog{handler: handler}
}

// Open shows the dialog for action over ids.
func (d *BulkDialog) Open(action domain.BulkAction, ids []string) error {
	if action.TargetStatus() == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAction, action)
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no pairs selected", domain.ErrInvalidAction)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.processing {
		return domain.ErrBusy
	}
	d.open = true
	d.action = action
	d.ids = slices.Clone(ids)
	d.reason = ""
	d.lastErr = ""
	return nil
}

// SetReason records the free-text reason.
func (d *BulkDialog) SetReason(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return domain.ErrDialogClosed
	}
	d.reason = text
	return nil
}

// Confirm runs the handler with the dialog's action, ids and reason. On
// success the dialog closes; on failure it stays open with the error
// recorded. If the dialog was closed or reopened while the handler ran,
// ErrStale is returned and the result is ignored.
func (d *BulkDialog) Confirm(ctx context.Context) (domain.BulkAction, []string, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return "", nil, domain.ErrDialogClosed
	}
	if d.processing {
		d.mu.Unlock()
		return "", nil, domain.ErrBusy
	}
	d.processing = true
	d.lastErr = ""
	d.token++
	token := d.token
	cctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	action, ids := d.action, slices.Clone(d.ids)
	reason := ""
	if action.AcceptsReason() {
		reason = strings.TrimSpace(d.reason)
	}
	d.mu.Unlock()

	err := d.handler(cctx, action, ids, reason)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.token != token {
		return action, ids, domain.ErrStale
	}
	d.processing = false
	d.cancel = nil
	if err != nil {
		d.lastErr = err.Error()
		return action, ids, err
	}
	d.reset()
	return action, ids, nil
}

// Close hides the dialog, cancelling any in-flight confirm.
func (d *BulkDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.token++
	d.processing = false
	d.reset()
}

func (d *BulkDialog) reset() {
	d.open = false
	d.action = ""
	d.ids = nil
	d.reason = ""
	d.lastErr = ""
}

// State returns a copy of the dialog state.
func (d *BulkDialog) State() BulkDialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := BulkDialogState{
		Open:       d.open,
		Action:     d.action,
		IDs:        slices.Clone(d.ids),
		Reason:     d.reason,
		Processing: d.processing,
		LastError:  d.lastErr,
	}
	if st.IDs == nil {
		st.IDs = []string{}
	}
	if d.open {
		st.ShowsReason = d.action.AcceptsReason()
		st.Copy = Describe(d.action)
	}
	return st
}
