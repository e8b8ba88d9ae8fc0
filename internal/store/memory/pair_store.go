// Package memory implements the domain store interfaces in process memory.
// It is the default storage driver and backs tests of the layers above.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// PairStore implements domain.PairStore with a mutex-guarded map.
type PairStore struct {
	mu    sync.RWMutex
	pairs map[string]domain.MarketPair
	fail  error
}

// NewPairStore creates a store holding pairs.
func NewPairStore(pairs ...domain.MarketPair) *PairStore {
	s := &PairStore{pairs: make(map[string]domain.MarketPair, len(pairs))}
	for _, p := range pairs {
		s.pairs[p.ID] = p
	}
	return s
}

// FailWith makes every subsequent call return err until cleared with nil.
// It lets callers exercise failure paths without a real backend.
func (s *PairStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// List returns every pair ordered by id.
func (s *PairStore) List(ctx context.Context) ([]domain.MarketPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]domain.MarketPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the pair with id or domain.ErrNotFound.
func (s *PairStore) Get(ctx context.Context, id string) (domain.MarketPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return domain.MarketPair{}, s.fail
	}
	p, ok := s.pairs[id]
	if !ok {
		return domain.MarketPair{}, fmt.Errorf("memory: get pair %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// Create inserts a new pair.
func (s *PairStore) Create(ctx context.Context, pair domain.MarketPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.pairs[pair.ID]; ok {
		return fmt.Errorf("memory: create pair %s: %w", pair.ID, domain.ErrAlreadyExists)
	}
	s.pairs[pair.ID] = pair
	return nil
}

// Update replaces an existing pair.
func (s *PairStore) Update(ctx context.Context, pair domain.MarketPair) error {
	return s.UpdateBatch(ctx, []domain.MarketPair{pair})
}

// UpdateBatch replaces existing pairs; if any id is unknown nothing changes.
func (s *PairStore) UpdateBatch(ctx context.Context, pairs []domain.MarketPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	for _, p := range pairs {
		if _, ok := s.pairs[p.ID]; !ok {
			return fmt.Errorf("memory: update pair %s: %w", p.ID, domain.ErrNotFound)
		}
	}
	for _, p := range pairs {
		s.pairs[p.ID] = p
	}
	return nil
}

// Count returns the number of stored pairs.
func (s *PairStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return 0, s.fail
	}
	return int64(len(s.pairs)), nil
}
