package domain

import (
	"errors"
	"testing"
	"time"
)

func TestBulkActionTargetStatus(t *testing.T) {
	tests := []struct {
		action BulkAction
		want   PairStatus
		reason bool
	}{
		{BulkApprove, PairStatusActive, false},
		{BulkReject, PairStatusRejected, true},
		{BulkLink, PairStatusActive, false},
		{BulkUnlink, PairStatusPending, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			if got := tt.action.TargetStatus(); got != tt.want {
				t.Fatalf("TargetStatus() = %q, want %q", got, tt.want)
			}
			if got := tt.action.AcceptsReason(); got != tt.reason {
				t.Fatalf("AcceptsReason() = %v, want %v", got, tt.reason)
			}
		})
	}
}

func TestParseBulkAction(t *testing.T) {
	if a, err := ParseBulkAction(" Reject "); err != nil || a != BulkReject {
		t.Fatalf("ParseBulkAction = %q, %v", a, err)
	}
	if _, err := ParseBulkAction("delete"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
}

func TestApplyBulk(t *testing.T) {
	now := time.Date(2025, 1, 9, 16, 0, 0, 0, time.UTC)
	base := MarketPair{ID: "pair-1", Status: PairStatusPending, Confidence: 80, OverrideReason: "old"}

	got, err := ApplyBulk(base, BulkReject, "duplicate", now)
	if err != nil {
		t.Fatalf("ApplyBulk reject: %v", err)
	}
	if got.Status != PairStatusRejected || got.OverrideReason != "duplicate" || !got.LastModified.Equal(now) {
		t.Fatalf("reject result = %+v", got)
	}
	if got.Confidence != 80 {
		t.Fatalf("confidence changed to %d", got.Confidence)
	}

	got, err = ApplyBulk(got, BulkApprove, "ignored", now)
	if err != nil {
		t.Fatalf("ApplyBulk approve: %v", err)
	}
	if got.Status != PairStatusActive || got.OverrideReason != "" {
		t.Fatalf("approve result = %+v", got)
	}

	got, err = ApplyBulk(got, BulkUnlink, "", now)
	if err != nil {
		t.Fatalf("ApplyBulk unlink: %v", err)
	}
	if got.Status != PairStatusPending {
		t.Fatalf("unlink status = %q", got.Status)
	}

	if _, err := ApplyBulk(base, BulkAction("merge"), "", now); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
}

func TestApplyOverride(t *testing.T) {
	now := time.Now()
	p := MarketPair{ID: "pair-2", Status: PairStatusRejected, Confidence: 40}

	got, err := ApplyOverride(p, 82, "checked resolution sources", now)
	if err != nil {
		t.Fatalf("ApplyOverride: %v", err)
	}
	if got.Confidence != 82 || got.Status != PairStatusOverridden {
		t.Fatalf("override = %d/%q, want 82/overridden", got.Confidence, got.Status)
	}
	if got.OverrideReason != "checked resolution sources" {
		t.Fatalf("reason = %q", got.OverrideReason)
	}

	for _, c := range []int{-1, 101} {
		if _, err := ApplyOverride(p, c, "", now); !errors.Is(err, ErrInvalidPair) {
			t.Fatalf("confidence %d: err = %v, want ErrInvalidPair", c, err)
		}
	}
}

func TestSortToggle(t *testing.T) {
	tests := []struct {
		name string
		from SortConfig
		key  SortKey
		want SortConfig
	}{
		{"default desc reclicked", DefaultSort(), SortByConfidence, SortConfig{SortByConfidence, SortAsc}},
		{"asc reclicked", SortConfig{SortByConfidence, SortAsc}, SortByConfidence, SortConfig{SortByConfidence, SortDesc}},
		{"new key", SortConfig{SortByConfidence, SortAsc}, SortByLastModified, SortConfig{SortByLastModified, SortAsc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Toggle(tt.key); got != tt.want {
				t.Fatalf("Toggle = %+v, want %+v", got, tt.want)
			}
		})
	}
}
