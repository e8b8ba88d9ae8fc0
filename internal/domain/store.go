package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PairStore persists market pairs.
type PairStore interface {
	List(ctx context.Context) ([]MarketPair, error)
	Get(ctx context.Context, id string) (MarketPair, error)
	Create(ctx context.Context, pair MarketPair) error
	Update(ctx context.Context, pair MarketPair) error
	// UpdateBatch writes every pair or none of them.
	UpdateBatch(ctx context.Context, pairs []MarketPair) error
	Count(ctx context.Context) (int64, error)
}

// ParameterStore persists the single system parameters record.
type ParameterStore interface {
	Get(ctx context.Context) (SystemParameters, error)
	Save(ctx context.Context, params SystemParameters) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
