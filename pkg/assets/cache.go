package assets

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache caches distinct-value summaries in Redis. Summaries scan every
// matching document; the cache keeps hot dashboards from re-scanning on each
// refresh. Keys derive from the compiled query's canonical form, so two
// requests that compile identically share an entry. Misses and Redis failures
// both fall through to the store: the cache is an optimization, never a
// source of truth.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewSummaryCache wraps a Redis client. A zero ttl defaults to one minute.
func NewSummaryCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SummaryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryCache{client: client, ttl: ttl, logger: logger}
}

func (c *SummaryCache) key(field, queryKey string) string {
	return "curator:summary:" + field + ":" + queryKey
}

// Get returns the cached values for (field, queryKey), if present.
func (c *SummaryCache) Get(ctx context.Context, field, queryKey string) ([]any, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(field, queryKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("summary cache read failed", "field", field, "error", err)
		}
		return nil, false
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		c.logger.Warn("summary cache entry corrupt", "field", field, "error", err)
		return nil, false
	}
	return values, true
}

// Set stores the values for (field, queryKey) with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, field, queryKey string, values []any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(field, queryKey), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("summary cache write failed", "field", field, "error", err)
	}
}
