package domain

import (
	"fmt"
	"strings"
	"time"
)

// BulkAction is an operator action applied to one or more pairs at once.
type BulkAction string

const (
	BulkApprove BulkAction = "approve"
	BulkReject  BulkAction = "reject"
	BulkLink    BulkAction = "link"
	BulkUnlink  BulkAction = "unlink"
)

// BulkActions lists every bulk action.
var BulkActions = []BulkAction{BulkApprove, BulkReject, BulkLink, BulkUnlink}

// ParseBulkAction resolves an action name case-insensitively.
func ParseBulkAction(s string) (BulkAction, error) {
	a := BulkAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case BulkApprove, BulkReject, BulkLink, BulkUnlink:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// TargetStatus is the status every pair takes after the action succeeds.
func (a BulkAction) TargetStatus() PairStatus {
	switch a {
	case BulkApprove, BulkLink:
		return PairStatusActive
	case BulkReject:
		return PairStatusRejected
	case BulkUnlink:
		return PairStatusPending
	}
	return ""
}

// AcceptsReason reports whether the operator may attach a reason.
func (a BulkAction) AcceptsReason() bool {
	return a == BulkReject || a == BulkUnlink
}

// PastTense renders the action for completion messages ("approved", "linked").
func (a BulkAction) PastTense() string {
	switch a {
	case BulkApprove:
		return "approved"
	case BulkReject:
		return "rejected"
	case BulkLink:
		return "linked"
	case BulkUnlink:
		return "unlinked"
	}
	return string(a) + "ed"
}

// ApplyBulk returns p after action. The reason is kept only for actions that
// accept one; approve and link clear any earlier reason.
func ApplyBulk(p MarketPair, action BulkAction, reason string, now time.Time) (MarketPair, error) {
	target := action.TargetStatus()
	if target == "" {
		return p, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	p.Status = target
	p.LastModified = now
	if action.AcceptsReason() {
		p.OverrideReason = strings.TrimSpace(reason)
	} else {
		p.OverrideReason = ""
	}
	return p, nil
}

// ApplyOverride returns p with a manually set confidence. The pair becomes
// overridden regardless of its previous status.
func ApplyOverride(p MarketPair, confidence int, reason string, now time.Time) (MarketPair, error) {
	if confidence < MinConfidence || confidence > MaxConfidence {
		return p, fmt.Errorf("%w: confidence %d outside [0,100]", ErrInvalidPair, confidence)
	}
	p.Confidence = confidence
	p.Status = PairStatusOverridden
	p.OverrideReason = strings.TrimSpace(reason)
	p.LastModified = now
	return p, nil
}
