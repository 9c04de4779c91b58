package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache for derived views (stats). A nil *Cache
// is valid and never hits, so services work unchanged without redis. Redis
// failures degrade to a direct load; the database stays the source of truth.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) lookup(ctx context.Context, key string, dst any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (c *Cache) store(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// GetOrSetJSON returns the cached value for key or loads, stores and returns
// it. Concurrent misses on one key share a single load.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	var cached T
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		var again T
		if c.lookup(ctx, key, &again) {
			return again, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, v, ttl)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, errors.New("redisrepo: cached value has unexpected type")
		}
		return v, nil
	}
}

// InvalidateEvent drops every cached view of the event's inventory.
func (c *Cache) InvalidateEvent(ctx context.Context, eventID int64, ticketTypeIDs ...int64) error {
	keys := []string{
		KeyEventStats(eventID),
		KeyEventAttendeeStats(eventID),
	}
	for _, id := range ticketTypeIDs {
		keys = append(keys, KeyTicketTypeStats(id))
	}

	return c.Del(ctx, keys...)
}
