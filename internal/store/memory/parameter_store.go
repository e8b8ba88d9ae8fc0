package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// ParameterStore implements domain.ParameterStore. It starts with the
// factory defaults.
type ParameterStore struct {
	mu     sync.RWMutex
	params domain.SystemParameters
	fail   error
}

// NewParameterStore creates a store holding the default parameters.
func NewParameterStore() *ParameterStore {
	return &ParameterStore{params: domain.DefaultSystemParameters()}
}

// FailWith makes every subsequent call return err until cleared with nil.
func (s *ParameterStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Get returns the current parameters.
func (s *ParameterStore) Get(ctx context.Context) (domain.SystemParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return domain.SystemParameters{}, s.fail
	}
	return s.params, nil
}

// Save replaces the parameters.
func (s *ParameterStore) Save(ctx context.Context, params domain.SystemParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.params = params
	return nil
}
