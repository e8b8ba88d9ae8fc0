package domain

import "time"

// Signal bus channels.
const (
	ChannelNotify = "ch:notify"
	ChannelPairs  = "ch:pairs"
	ChannelParams = "ch:params"

	// ChannelOpportunity carries externally detected opportunities.
	ChannelOpportunity = "ch:opportunity"

	// StreamAudit mirrors audit entries for late subscribers.
	StreamAudit = "stream:audit"
)

// PairEventKind classifies a PairEvent.
type PairEventKind string

const (
	PairCreated    PairEventKind = "pair_created"
	PairOverridden PairEventKind = "pair_overridden"
	PairsBulk      PairEventKind = "pairs_bulk"
)

// PairEvent is published on ChannelPairs after a mutation.
type PairEvent struct {
	Kind   PairEventKind `json:"kind"`
	Action BulkAction    `json:"action,omitempty"`
	Reason string        `json:"reason,omitempty"`
	Pairs  []MarketPair  `json:"pairs"`
	At     time.Time     `json:"at"`
}

// ServiceStatus is a summary of the service's operational state.
type ServiceStatus struct {
	Mode          string    `json:"mode"`
	StorageDriver string    `json:"storage_driver"`
	RedisEnabled  bool      `json:"redis_enabled"`
	ExportEnabled bool      `json:"export_enabled"`
	Role          string    `json:"role"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Pairs         int64     `json:"pairs"`
}
