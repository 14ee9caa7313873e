package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL matches the upstream feed's one-hour historical cache.
const DefaultCacheTTL = time.Hour

// RedisCache decorates a Source with a shared Redis cache. Keys bucket the
// lookup timestamp to the minute so nearby queries hit the same entry.
// Redis failures degrade to the inner source, never to the caller.
type RedisCache struct {
	inner  Source
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Source = (*RedisCache)(nil)

// NewRedisCache wraps inner with a Redis-backed cache.
func NewRedisCache(inner Source, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "price_cache").Logger(),
	}
}

func cacheKey(mint string, unixTime int64) string {
	return fmt.Sprintf("price:%s:%d", mint, unixTime/60)
}

// PriceAt serves from cache when possible, delegating misses to the inner
// source and storing the result. ErrUnavailable results are not cached:
// late price backfills should become visible without waiting out a TTL.
func (c *RedisCache) PriceAt(ctx context.Context, mint string, unixTime int64) (float64, error) {
	key := cacheKey(mint, unixTime)

	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		price, parseErr := strconv.ParseFloat(val, 64)
		if parseErr == nil {
			return price, nil
		}
		c.logger.Warn().Str("key", key).Str("value", val).Msg("corrupt cache entry")
	} else if err != redis.Nil {
		c.logger.Debug().Err(err).Msg("cache read failed, falling through")
	}

	price, err := c.inner.PriceAt(ctx, mint, unixTime)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatFloat(price, 'g', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("cache write failed")
	}

	return price, nil
}
