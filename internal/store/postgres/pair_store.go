package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arblens/internal/domain"
)

const pairColumns = `id, market1, market2, confidence, category, status, override_reason, last_modified`

// PairStore implements domain.PairStore using PostgreSQL. Listings are
// stored as JSONB with their venues duplicated into plain columns so the
// different-venue constraint is enforced by the schema.
type PairStore struct {
	pool *pgxpool.Pool
}

// NewPairStore creates a new PairStore backed by the given connection pool.
func NewPairStore(pool *pgxpool.Pool) *PairStore {
	return &PairStore{pool: pool}
}

// List returns every pair ordered by id.
func (s *PairStore) List(ctx context.Context) ([]domain.MarketPair, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pairColumns+` FROM market_pairs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.MarketPair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pairs rows: %w", err)
	}
	return pairs, nil
}

// Get retrieves a single pair by id.
func (s *PairStore) Get(ctx context.Context, id string) (domain.MarketPair, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pairColumns+` FROM market_pairs WHERE id = $1`, id)
	p, err := scanPair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketPair{}, fmt.Errorf("postgres: get pair %s: %w", id, domain.ErrNotFound)
		}
		return domain.MarketPair{}, err
	}
	return p, nil
}

// Create inserts a new pair.
func (s *PairStore) Create(ctx context.Context, p domain.MarketPair) error {
	m1, m2, err := marshalListings(p)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO market_pairs (id, market1, market2, venue1, venue2, confidence, category, status, override_reason, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)`
	_, err = s.pool.Exec(ctx, query,
		p.ID, m1, m2, string(p.Market1.Venue), string(p.Market2.Venue),
		p.Confidence, string(p.Category), string(p.Status), p.OverrideReason, p.LastModified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("postgres: create pair %s: %w", p.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create pair %s: %w", p.ID, err)
	}
	return nil
}

// Update replaces an existing pair.
func (s *PairStore) Update(ctx context.Context, p domain.MarketPair) error {
	return s.UpdateBatch(ctx, []domain.MarketPair{p})
}

// UpdateBatch replaces existing pairs inside one transaction. An unknown id
// rolls the whole batch back.
func (s *PairStore) UpdateBatch(ctx context.Context, pairs []domain.MarketPair) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin pair batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		UPDATE market_pairs SET
			market1         = $2,
			market2         = $3,
			venue1          = $4,
			venue2          = $5,
			confidence      = $6,
			category        = $7,
			status          = $8,
			override_reason = NULLIF($9, ''),
			last_modified   = $10
		WHERE id = $1`

	for _, p := range pairs {
		m1, m2, err := marshalListings(p)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query,
			p.ID, m1, m2, string(p.Market1.Venue), string(p.Market2.Venue),
			p.Confidence, string(p.Category), string(p.Status), p.OverrideReason, p.LastModified,
		)
		if err != nil {
			return fmt.Errorf("postgres: update pair %s: %w", p.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("postgres: update pair %s: %w", p.ID, domain.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit pair batch: %w", err)
	}
	return nil
}

// Count returns the total number of pairs.
func (s *PairStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM market_pairs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count pairs: %w", err)
	}
	return n, nil
}

func marshalListings(p domain.MarketPair) ([]byte, []byte, error) {
	m1, err := json.Marshal(p.Market1)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: marshal market1 of %s: %w", p.ID, err)
	}
	m2, err := json.Marshal(p.Market2)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: marshal market2 of %s: %w", p.ID, err)
	}
	return m1, m2, nil
}

func scanPair(row pgx.Row) (domain.MarketPair, error) {
	var (
		p                domain.MarketPair
		m1, m2           []byte
		category, status string
		reason           *string
	)
	if err := row.Scan(&p.ID, &m1, &m2, &p.Confidence, &category, &status, &reason, &p.LastModified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketPair{}, err
		}
		return domain.MarketPair{}, fmt.Errorf("postgres: scan pair: %w", err)
	}
	if err := json.Unmarshal(m1, &p.Market1); err != nil {
		return domain.MarketPair{}, fmt.Errorf("postgres: unmarshal market1 of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(m2, &p.Market2); err != nil {
		return domain.MarketPair{}, fmt.Errorf("postgres: unmarshal market2 of %s: %w", p.ID, err)
	}
	p.Category = domain.Category(category)
	p.Status = domain.PairStatus(status)
	if reason != nil {
		p.OverrideReason = *reason
	}
	return p, nil
}
