package redisrepo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type stats struct {
	Sold int `json:"sold"`
}

func TestGetOrSetJSON(t *testing.T) {
	mr, rdb := newClient(t)
	c := New(rdb)
	ctx := context.Background()

	var loads atomic.Int32
	loader := func(context.Context) (stats, error) {
		loads.Add(1)
		return stats{Sold: 7}, nil
	}

	v, err := GetOrSetJSON(ctx, c, KeyEventStats(1), time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, 7, v.Sold)

	v, err = GetOrSetJSON(ctx, c, KeyEventStats(1), time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, 7, v.Sold)
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, mr.Exists(KeyEventStats(1)))

	mr.FastForward(2 * time.Minute)
	_, err = GetOrSetJSON(ctx, c, KeyEventStats(1), time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestGetOrSetJSON_LoaderError(t *testing.T) {
	mr, rdb := newClient(t)
	c := New(rdb)
	boom := errors.New("boom")

	_, err := GetOrSetJSON(context.Background(), c, KeyEventStats(2), time.Minute, func(context.Context) (stats, error) {
		return stats{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(KeyEventStats(2)))
}

func TestNilCache(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	v, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (stats, error) {
		return stats{Sold: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Sold)
	assert.NoError(t, c.Del(ctx, "k"))
	assert.NoError(t, c.InvalidateEvent(ctx, 1, 2, 3))
}

func TestGetOrSetJSON_RedisDown(t *testing.T) {
	mr, rdb := newClient(t)
	c := New(rdb)
	mr.Close()

	v, err := GetOrSetJSON(context.Background(), c, KeyEventStats(3), time.Minute, func(context.Context) (stats, error) {
		return stats{Sold: 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, v.Sold)
}

func TestGetOrSetJSON_CorruptEntry(t *testing.T) {
	mr, rdb := newClient(t)
	c := New(rdb)
	require.NoError(t, mr.Set(KeyEventStats(4), "not json"))

	v, err := GetOrSetJSON(context.Background(), c, KeyEventStats(4), time.Minute, func(context.Context) (stats, error) {
		return stats{Sold: 9}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, v.Sold)

	got, err := mr.Get(KeyEventStats(4))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sold":9}`, got)
}

func TestInvalidateEvent(t *testing.T) {
	mr, rdb := newClient(t)
	c := New(rdb)
	ctx := context.Background()

	for _, k := range []string{KeyEventStats(1), KeyEventAttendeeStats(1), KeyTicketTypeStats(5), KeyEventStats(2)} {
		require.NoError(t, mr.Set(k, "{}"))
	}

	require.NoError(t, c.InvalidateEvent(ctx, 1, 5))

	assert.False(t, mr.Exists(KeyEventStats(1)))
	assert.False(t, mr.Exists(KeyEventAttendeeStats(1)))
	assert.False(t, mr.Exists(KeyTicketTypeStats(5)))
	assert.True(t, mr.Exists(KeyEventStats(2)))
}

func TestIdempotencyStore(t *testing.T) {
	mr, rdb := newClient(t)
	s := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()
	key := KeyIdemPurchase(42, "req-1")

	e, err := s.Begin(ctx, key, "fp-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemAcquired, e.State)

	e, err = s.Begin(ctx, key, "fp-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemInFlight, e.State)
	assert.True(t, e.Matches("fp-a"))
	assert.False(t, e.Matches("fp-b"))

	mr.FastForward(2 * time.Minute)
	e, err = s.Begin(ctx, key, "fp-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemAcquired, e.State, "an abandoned claim lapses")

	require.NoError(t, s.Complete(ctx, key, "fp-a", `{"id":"b1"}`))
	mr.FastForward(30 * time.Minute)

	e, err = s.Begin(ctx, key, "fp-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemDone, e.State)
	assert.False(t, e.Matches("fp-b"))
	assert.JSONEq(t, `{"id":"b1"}`, e.Payload)

	require.NoError(t, s.Abort(ctx, key))
	e, err = s.Begin(ctx, key, "fp-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemAcquired, e.State)
}

func TestIdempotencyStore_RedisDown(t *testing.T) {
	mr, rdb := newClient(t)
	s := NewIdempotencyStore(rdb, time.Hour)
	mr.Close()

	_, err := s.Begin(context.Background(), KeyIdemPurchase(1, "k"), "fp", time.Minute)
	require.Error(t, err)
}

func TestSlidingWindowLimiter(t *testing.T) {
	_, rdb := newClient(t)
	l := NewSlidingWindowLimiter(rdb, 2, time.Minute)

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, _, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, current, retry, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(2), current)
	assert.Equal(t, time.Minute, retry)

	allowed, _, _, err = l.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, allowed, "windows are per key")

	now = now.Add(61 * time.Second)
	allowed, _, _, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "tixbooking:v1:event:3:stats", KeyEventStats(3))
	assert.Equal(t, "tixbooking:v1:idem:purchase:9:abc", KeyIdemPurchase(9, "abc"))
	assert.Equal(t, "tixbooking:v1:rl:ip:1.2.3.4", KeyRateLimit("ip:1.2.3.4"))
}
