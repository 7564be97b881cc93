package profile

import (
	"context"
	"errors"
	"strconv"
	"time"

	"slotbook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const defaultCachePrefix = "slotbook:rate:"

// CachedRateProvider keeps rates in Redis for ttl. Cache failures fall
// through to the wrapped provider.
type CachedRateProvider struct {
	next   RateProvider
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewCachedRateProvider(next RateProvider, rdb redis.Cmdable, ttl time.Duration, log *logger.Logger) *CachedRateProvider {
	return &CachedRateProvider{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: defaultCachePrefix,
		log:    log,
	}
}

func (c *CachedRateProvider) HourlyRateCents(ctx context.Context, providerID string) (int64, error) {
	key := c.prefix + providerID

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cents, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && cents > 0 {
			return cents, nil
		}
		c.log.Warn("Discarding malformed cached rate", "provider_id", providerID, "value", raw)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Rate cache read failed", "provider_id", providerID, "error", err)
	}

	cents, err := c.next.HourlyRateCents(ctx, providerID)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, strconv.FormatInt(cents, 10), c.ttl).Err(); err != nil {
		c.log.Warn("Rate cache write failed", "provider_id", providerID, "error", err)
	}
	return cents, nil
}

// Invalidate drops the cached rate so the next read goes to the source.
func (c *CachedRateProvider) Invalidate(ctx context.Context, providerID string) error {
	return c.rdb.Del(ctx, c.prefix+providerID).Err()
}
