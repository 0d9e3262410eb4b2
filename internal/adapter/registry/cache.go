package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/satreflabs/tropo-correction-service/internal/observability"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

const stationKeyPrefix = "tropo:station:"

// CachedResolver wraps a StationResolver with a Redis cache. Station records
// change rarely, so a short TTL keeps lookups off the database without
// holding stale coordinates for long.
type CachedResolver struct {
	inner   tropo.StationResolver
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner tropo.StationResolver, client *redis.Client, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve returns the cached station when present, falling back to the inner
// resolver. Cache failures are logged and absorbed: a dead Redis must never
// take station resolution down with it.
func (c *CachedResolver) Resolve(ctx context.Context, id string) (tropo.Station, error) {
	key := stationKeyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var st tropo.Station
		if unmarshalErr := json.Unmarshal(data, &st); unmarshalErr == nil {
			c.metrics.StationCache.WithLabelValues("hit").Inc()
			return st, nil
		}
		// Corrupt entries fall through to the inner resolver and get rewritten.
		c.logger.Warn("corrupt station cache entry", "key", key)
		c.metrics.StationCache.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		c.metrics.StationCache.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("station cache read failed", "key", key, "error", err)
		c.metrics.StationCache.WithLabelValues("error").Inc()
	}

	st, err := c.inner.Resolve(ctx, id)
	if err != nil {
		return tropo.Station{}, err
	}

	// Only successful lookups are cached so new stations appear immediately.
	if payload, marshalErr := json.Marshal(st); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("station cache write failed", "key", key, "error", setErr)
		}
	}

	return st, nil
}

// List always hits the inner resolver. Listings are rare and must reflect
// the registry as written.
func (c *CachedResolver) List(ctx context.Context) ([]tropo.Station, error) {
	return c.inner.List(ctx)
}
