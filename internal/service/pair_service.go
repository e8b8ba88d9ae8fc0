package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arblens/internal/domain"
	"github.com/alanyoungcy/arblens/internal/pairview"
)

// bulkLockKey serialises bulk updates across replicas.
const bulkLockKey = "pairs:bulk"

// PairServiceConfig holds the tunables for PairService.
type PairServiceConfig struct {
	// Latency is an artificial delay applied before mutations. It honours
	// context cancellation.
	Latency time.Duration
	// LockTTL bounds how long the bulk lock may be held.
	LockTTL time.Duration
}

// ListQuery selects a page of the derived pair view.
type ListQuery struct {
	Search string
	Filter domain.FilterState
	Sort   domain.SortConfig
	Limit  int
	Offset int
}

// ListResult is one page of pairs. Total counts every stored pair; Matched
// counts those passing the search and filters.
type ListResult struct {
	Pairs   []domain.MarketPair `json:"pairs"`
	Total   int                 `json:"total"`
	Matched int                 `json:"matched"`
}

// PairService owns market pair reads and mutations. The cache, lock
// manager and bus are optional; a nil value disables that concern.
type PairService struct {
	pairs  domain.PairStore
	audit  domain.AuditStore
	cache  domain.PairCache
	locks  domain.LockManager
	bus    domain.SignalBus
	cfg    PairServiceConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewPairService creates a PairService with all required dependencies.
func NewPairService(
	pairs domain.PairStore,
	audit domain.AuditStore,
	cache domain.PairCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	cfg PairServiceConfig,
	logger *slog.Logger,
) *PairService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &PairService{
		pairs:  pairs,
		audit:  audit,
		cache:  cache,
		locks:  locks,
		bus:    bus,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "pair_service")),
	}
}

// SetClock overrides the time source used to stamp modifications.
func (s *PairService) SetClock(now func() time.Time) { s.now = now }

// All returns every stored pair in id order.
func (s *PairService) All(ctx context.Context) ([]domain.MarketPair, error) {
	pairs, err := s.pairs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("pair_service: list: %w", err)
	}
	return pairs, nil
}

// List derives the filtered, sorted view and returns the requested page.
func (s *PairService) List(ctx context.Context, q ListQuery) (ListResult, error) {
	filter, err := q.Filter.Normalize()
	if err != nil {
		return ListResult{}, err
	}
	sortCfg := q.Sort
	if sortCfg.Key == "" {
		sortCfg = domain.DefaultSort()
	}

	pairs, err := s.All(ctx)
	if err != nil {
		return ListResult{}, err
	}
	view := pairview.Derive(pairs, filter, q.Search, sortCfg)
	return ListResult{
		Pairs:   pairview.Page(view, q.Limit, q.Offset),
		Total:   len(pairs),
		Matched: len(view),
	}, nil
}

// Get returns a pair, reading through the cache when one is configured.
func (s *PairService) Get(ctx context.Context, id string) (domain.MarketPair, error) {
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, id); err == nil {
			return p, nil
		}
	}

	p, err := s.pairs.Get(ctx, id)
	if err != nil {
		return domain.MarketPair{}, fmt.Errorf("pair_service: get %q: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("pair_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// Count returns the number of stored pairs.
func (s *PairService) Count(ctx context.Context) (int64, error) {
	n, err := s.pairs.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("pair_service: count: %w", err)
	}
	return n, nil
}

// Create stores a new pending pair under a fresh id.
func (s *PairService) Create(ctx context.Context, p domain.MarketPair) (domain.MarketPair, error) {
	p.ID = uuid.NewString()
	p.Status = domain.PairStatusPending
	p.LastModified = s.now()
	if err := p.Validate(); err != nil {
		return domain.MarketPair{}, err
	}
	if err := s.pairs.Create(ctx, p); err != nil {
		return domain.MarketPair{}, fmt.Errorf("pair_service: create: %w", err)
	}

	s.record(ctx, "pair_created", map[string]any{
		"pair_id":    p.ID,
		"confidence": p.Confidence,
		"category":   string(p.Category),
	})
	s.publish(ctx, domain.PairEvent{Kind: domain.PairCreated, Pairs: []domain.MarketPair{p}, At: p.LastModified})
	s.logger.InfoContext(ctx, "pair created", slog.String("pair_id", p.ID))
	return p, nil
}

// Override sets a pair's confidence manually and marks it overridden.
func (s *PairService) Override(ctx context.Context, id string, confidence int, reason string) (domain.MarketPair, error) {
	if err := sleep(ctx, s.cfg.Latency); err != nil {
		return domain.MarketPair{}, err
	}

	current, err := s.pairs.Get(ctx, id)
	if err != nil {
		return domain.MarketPair{}, fmt.Errorf("pair_service: override %q: %w", id, err)
	}
	updated, err := domain.ApplyOverride(current, confidence, reason, s.now())
	if err != nil {
		return domain.MarketPair{}, err
	}
	if err := s.pairs.Update(ctx, updated); err != nil {
		return domain.MarketPair{}, fmt.Errorf("pair_service: override %q: %w", id, err)
	}

	s.invalidate(ctx, id)
	s.record(ctx, "pair_overridden", map[string]any{
		"pair_id":         id,
		"from_confidence": current.Confidence,
		"to_confidence":   updated.Confidence,
		"reason":          updated.OverrideReason,
	})
	s.publish(ctx, domain.PairEvent{
		Kind:   domain.PairOverridden,
		Reason: updated.OverrideReason,
		Pairs:  []domain.MarketPair{updated},
		At:     updated.LastModified,
	})
	s.logger.InfoContext(ctx, "pair overridden",
		slog.String("pair_id", id),
		slog.Int("confidence", updated.Confidence),
	)
	return updated, nil
}

// BulkApply applies action to every pair in ids as one batch. Every id must
// exist; otherwise nothing is written.
func (s *PairService) BulkApply(ctx context.Context, action domain.BulkAction, ids []string, reason string) ([]domain.MarketPair, error) {
	if action.TargetStatus() == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAction, action)
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no pairs selected", domain.ErrInvalidAction)
	}

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, bulkLockKey, s.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("pair_service: bulk %s: %w", action, err)
		}
		defer unlock()
	}

	if err := sleep(ctx, s.cfg.Latency); err != nil {
		return nil, err
	}

	now := s.now()
	updated := make([]domain.MarketPair, 0, len(ids))
	for _, id := range ids {
		p, err := s.pairs.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("pair_service: bulk %s %q: %w", action, id, err)
		}
		p, err = domain.ApplyBulk(p, action, reason, now)
		if err != nil {
			return nil, err
		}
		updated = append(updated, p)
	}

	if err := s.pairs.UpdateBatch(ctx, updated); err != nil {
		return nil, fmt.Errorf("pair_service: bulk %s: %w", action, err)
	}

	s.invalidate(ctx, ids...)
	detail := map[string]any{
		"action": string(action),
		"ids":    ids,
		"count":  len(ids),
	}
	if action.AcceptsReason() && updated[0].OverrideReason != "" {
		detail["reason"] = updated[0].OverrideReason
	}
	s.record(ctx, "pairs_bulk", detail)
	s.publish(ctx, domain.PairEvent{
		Kind:   domain.PairsBulk,
		Action: action,
		Reason: updated[0].OverrideReason,
		Pairs:  updated,
		At:     now,
	})
	s.logger.InfoContext(ctx, "bulk action applied",
		slog.String("action", string(action)),
		slog.Int("count", len(updated)),
	)
	return updated, nil
}

func (s *PairService) invalidate(ctx context.Context, ids ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PairService) record(ctx context.Context, event string, detail map[string]any) {
	recordAudit(ctx, s.audit, s.bus, s.logger, event, detail)
}

func (s *PairService) publish(ctx context.Context, ev domain.PairEvent) {
	publishJSON(ctx, s.bus, s.logger, domain.ChannelPairs, ev)
}

// recordAudit logs an audit entry and mirrors it to the audit stream. Both
// are best effort once the primary write has succeeded.
func recordAudit(ctx context.Context, audit domain.AuditStore, bus domain.SignalBus, logger *slog.Logger, event string, detail map[string]any) {
	if audit != nil {
		if err := audit.Log(ctx, event, detail); err != nil {
			logger.WarnContext(ctx, "audit log failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}
	if bus == nil {
		return
	}
	data, err := json.Marshal(map[string]any{"event": event, "detail": detail})
	if err != nil {
		return
	}
	if err := bus.StreamAppend(ctx, domain.StreamAudit, data); err != nil {
		logger.WarnContext(ctx, "audit stream append failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func publishJSON(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, v any) {
	if bus == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.WarnContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, data); err != nil {
		logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IsClientError reports whether err stems from invalid input rather than a
// backend failure.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidPair) ||
		errors.Is(err, domain.ErrInvalidAction) ||
		errors.Is(err, domain.ErrInvalidParameters)
}
