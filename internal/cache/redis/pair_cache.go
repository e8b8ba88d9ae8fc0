package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// DefaultPairTTL bounds how long a cached pair may be served.
const DefaultPairTTL = 5 * time.Minute

// PairCache implements domain.PairCache using Redis hashes holding the
// JSON-encoded pair.
//
// Key schema:
//
//	{prefix}pair:{id} - hash with field "data" containing JSON
type PairCache struct {
	c   *Client
	ttl time.Duration
}

// NewPairCache creates a PairCache backed by the given Client. A
// non-positive ttl uses DefaultPairTTL.
func NewPairCache(c *Client, ttl time.Duration) *PairCache {
	if ttl <= 0 {
		ttl = DefaultPairTTL
	}
	return &PairCache{c: c, ttl: ttl}
}

func (pc *PairCache) pairKey(id string) string { return pc.c.Key("pair:" + id) }

// Set stores pair with the cache TTL.
func (pc *PairCache) Set(ctx context.Context, pair domain.MarketPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("redis: marshal pair %s: %w", pair.ID, err)
	}

	key := pc.pairKey(pair.ID)
	pipe := pc.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, pc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set pair %s: %w", pair.ID, err)
	}
	return nil
}

// Get returns the cached pair or domain.ErrNotFound on a miss.
func (pc *PairCache) Get(ctx context.Context, id string) (domain.MarketPair, error) {
	data, err := pc.c.rdb.HGet(ctx, pc.pairKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketPair{}, domain.ErrNotFound
		}
		return domain.MarketPair{}, fmt.Errorf("redis: get pair %s: %w", id, err)
	}

	var pair domain.MarketPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return domain.MarketPair{}, fmt.Errorf("redis: unmarshal pair %s: %w", id, err)
	}
	return pair, nil
}

// Invalidate drops the given pairs from the cache.
func (pc *PairCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = pc.pairKey(id)
	}
	if err := pc.c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate %d pair(s): %w", len(ids), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PairCache = (*PairCache)(nil)
