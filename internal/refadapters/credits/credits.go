// Package credits implements a credits.check balance lookup cached in Redis via
// redis/go-redis/v9, so a provider's credit-balance endpoint isn't hit on
// every phase attempt that wants to confirm headroom before spending.
//
// credits.check is not itself one of the seventeen catalogue phases —
// credit-balance monitoring is treated as an external collaborator, not a
// pipeline step; this package exists so a caller composing its own
// adapters (e.g. wrapping AdapterTextGenerate/AdapterImageGenerate with a
// pre-flight balance check) has a ready-made cache to reuse.
package credits

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/castforge/castforge/internal/apperrors"
)

const defaultTTL = 30 * time.Second

// Checker caches a provider's remaining-credits figure in Redis with a
// short TTL, falling back to fetch on a miss.
type Checker struct {
	Redis *redis.Client
	Fetch func(ctx context.Context) (float64, error)
	TTL   time.Duration
	key   string
}

// NewChecker builds a Checker keyed by cacheKey (e.g. the provider name).
func NewChecker(client *redis.Client, cacheKey string, fetch func(ctx context.Context) (float64, error)) *Checker {
	return &Checker{Redis: client, Fetch: fetch, key: "castforge:credits:" + cacheKey}
}

func (c *Checker) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return defaultTTL
}

// Remaining returns the cached credit balance, refreshing it via Fetch on
// a cache miss and re-populating the cache with the fresh value.
func (c *Checker) Remaining(ctx context.Context) (float64, error) {
	cached, err := c.Redis.Get(ctx, c.key).Result()
	if err == nil {
		v, parseErr := strconv.ParseFloat(cached, 64)
		if parseErr == nil {
			return v, nil
		}
	} else if err != redis.Nil {
		return 0, apperrors.FailedTo("read cached credit balance", err)
	}

	balance, err := c.Fetch(ctx)
	if err != nil {
		return 0, apperrors.FailedTo("fetch credit balance", err)
	}
	if setErr := c.Redis.Set(ctx, c.key, strconv.FormatFloat(balance, 'f', -1, 64), c.ttl()).Err(); setErr != nil {
		return balance, nil // cache write failure doesn't invalidate the fresh read
	}
	return balance, nil
}
