// Package cache provides the two-tier (in-process + Redis) lookaside
// cache the exchange fetcher uses to avoid re-issuing an identical candle
// request while its cached response is still live.
package cache

import (
	"context"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// API is the lookaside-cache surface the candle fetcher calls: a read
// and a single TTL-bound write. There is no bare Set — every cache entry
// here is a fetched candle payload with an explicit expiry tied to the
// exchange config's request timeout, never an indefinite one.
type API interface {
	Get(ctx context.Context, key string) (string, bool)
	SetWithDuration(ctx context.Context, key string, value string, duration time.Duration)
}

// Manager fronts an in-process cache with a Redis tier so a cache miss
// on one process instance can still be satisfied by another's write.
type Manager struct {
	inmem *cache.Cache
	redis *redis.Client
}

func NewCacheManager(inmem *cache.Cache, redis *redis.Client) API {
	return &Manager{
		inmem: inmem,
		redis: redis,
	}
}

// Get checks the in-process tier first, falling back to Redis on a miss.
func (c *Manager) Get(ctx context.Context, key string) (string, bool) {
	logger := ctxzap.Extract(ctx)

	cVal, present := c.inmem.Get(key)
	if !present {
		rVal, err := c.redis.Get(ctx, key).Result()
		if (err != nil) && (err.Error() != "redis: nil") {
			logger.Sugar().Warnf("occurred while retrieving cached candles from redis: %v", err)
			return "", false
		}
		if len(rVal) == 0 {
			return rVal, false
		}
		return rVal, true
	}
	return cVal.(string), present
}

// SetWithDuration writes value to both tiers under the same key and TTL.
func (c *Manager) SetWithDuration(ctx context.Context, key string, value string, duration time.Duration) {
	logger := ctxzap.Extract(ctx)

	c.inmem.Set(key, value, duration)

	_, err := c.redis.Set(ctx, key, value, duration).Result()
	if err != nil {
		logger.Sugar().Errorf("occurred %v while caching candles to redis for key %v", err, key)
	}
}
