// Package cache provides a Redis read-through cache in front of the problem
// catalog.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

const keyPrefix = "rehearse:problems:"

// ProblemCache caches catalog reads in Redis and falls back to the wrapped
// catalog on a miss. Concurrent misses for the same key share one load.
// Redis failures degrade to uncached reads.
type ProblemCache struct {
	client *redis.Client
	inner  domain.ProblemCatalog
	ttl    time.Duration
	sf     singleflight.Group
}

// NewProblemCache wraps inner. A ttl of zero stores entries without expiry.
func NewProblemCache(client *redis.Client, inner domain.ProblemCatalog, ttl time.Duration) *ProblemCache {
	return &ProblemCache{client: client, inner: inner, ttl: ttl}
}

// FindByID returns the problem, loading it into the cache on a miss.
func (c *ProblemCache) FindByID(ctx context.Context, id string) (*domain.Problem, error) {
	var p domain.Problem
	if c.get(ctx, c.problemKey(id), &p) {
		return &p, nil
	}

	v, err, _ := c.sf.Do(c.problemKey(id), func() (any, error) {
		var cached domain.Problem
		if c.get(ctx, c.problemKey(id), &cached) {
			return &cached, nil
		}
		loaded, err := c.inner.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		c.set(ctx, c.problemKey(id), loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Problem), nil
}

// Query returns matching problems, caching each distinct query result.
func (c *ProblemCache) Query(ctx context.Context, q domain.ProblemQuery) ([]*domain.Problem, error) {
	key := c.queryKey(q)
	var problems []*domain.Problem
	if c.get(ctx, key, &problems) {
		return problems, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		var cached []*domain.Problem
		if c.get(ctx, key, &cached) {
			return cached, nil
		}
		loaded, err := c.inner.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a flight get their own slice; selectors sort in place.
	return slices.Clone(v.([]*domain.Problem)), nil
}

// Invalidate drops every cached catalog entry. Call it after reseeding.
func (c *ProblemCache) Invalidate(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete cache keys: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Info("problem cache invalidated", "keys", removed)
	return removed, nil
}

// Ping checks Redis connectivity.
func (c *ProblemCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ProblemCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("problem cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("problem cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *ProblemCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttlWithJitter()).Err(); err != nil {
		slog.Warn("problem cache write failed", "key", key, "error", err)
	}
}

func (c *ProblemCache) problemKey(id string) string {
	return keyPrefix + "id:" + id
}

// queryKey hashes the query so arbitrary company names stay out of key text.
func (c *ProblemCache) queryKey(q domain.ProblemQuery) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%d",
		q.Field, q.Category, q.Company, q.MinRating, q.MaxRating, q.ExcludeID, q.Limit)
	sum := sha1.Sum([]byte(raw))
	return keyPrefix + "q:" + hex.EncodeToString(sum[:])
}

// ttlWithJitter spreads expiries by up to 10% so entries written together
// do not all expire together.
func (c *ProblemCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int64N(jitterMax+1))
}

var _ domain.ProblemCatalog = (*ProblemCache)(nil)
