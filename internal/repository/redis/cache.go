package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through JSON cache for catalog and seat-map reads. Redis
// failures never fail a read: the loader result is served uncached.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// Load returns the cached value under key or calls loader and stores its
// result for ttl. Concurrent misses on one key share a single loader call.
// Loader errors are returned as is and never cached.
func Load[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	var out T

	if raw, ok := c.lookup(ctx, key); ok {
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}

	// Callers share encoded bytes, not the value, so each gets its own copy
	// of any slices or maps inside T. An entry that does not decode as T is
	// replaced by the loader result.
	shared, err, _ := c.sf.Do(key, func() (any, error) {
		if raw, ok := c.lookup(ctx, key); ok && json.Unmarshal(raw, new(T)) == nil {
			return raw, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		_ = c.rdb.Set(ctx, key, raw, ttl).Err()
		return raw, nil
	})
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(shared.([]byte), &out); err != nil {
		return out, err
	}
	return out, nil
}

// lookup reports a hit only for a readable entry. Redis errors count as a
// miss.
func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Invalidate removes keys. A missing key is not an error.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// InvalidateShowtime drops every cached view of the showtime.
func (c *Cache) InvalidateShowtime(ctx context.Context, showtimeID int64) error {
	return c.Invalidate(ctx, KeySeatMap(showtimeID), KeyShowtime(showtimeID))
}
