package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// ParameterStore implements domain.ParameterStore using a single-row table.
type ParameterStore struct {
	pool *pgxpool.Pool
}

// NewParameterStore creates a new ParameterStore backed by the given connection pool.
func NewParameterStore(pool *pgxpool.Pool) *ParameterStore {
	return &ParameterStore{pool: pool}
}

// Get returns the stored parameters, or the defaults when none were saved.
func (s *ParameterStore) Get(ctx context.Context) (domain.SystemParameters, error) {
	const query = `SELECT params, updated_at FROM system_parameters WHERE id = 1`

	var raw []byte
	params := domain.DefaultSystemParameters()
	var updatedAt = params.UpdatedAt

	err := s.pool.QueryRow(ctx, query).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return params, nil
		}
		return domain.SystemParameters{}, fmt.Errorf("postgres: get system parameters: %w", err)
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return domain.SystemParameters{}, fmt.Errorf("postgres: unmarshal system parameters: %w", err)
	}
	params.UpdatedAt = updatedAt
	return params, nil
}

// Save upserts the parameters. The struct is stored as JSONB.
func (s *ParameterStore) Save(ctx context.Context, params domain.SystemParameters) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("postgres: marshal system parameters: %w", err)
	}

	const query = `
		INSERT INTO system_parameters (id, params, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			params     = EXCLUDED.params,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("postgres: save system parameters: %w", err)
	}
	return nil
}
