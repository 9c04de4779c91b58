package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type IdemState string

const (
	// IdemAcquired means the caller now owns the key and must Complete or
	// Abort it.
	IdemAcquired IdemState = "acquired"
	IdemInFlight IdemState = "pending"
	IdemDone     IdemState = "done"
)

// IdemEntry is what Begin found under an Idempotency-Key.
type IdemEntry struct {
	State       IdemState
	Fingerprint string
	Payload     string
}

// Matches reports whether the entry was created by the same request.
func (e IdemEntry) Matches(fingerprint string) bool {
	return e.Fingerprint == fingerprint
}

// Each key is a hash {state, fp, body}. Begin claims an absent key
// atomically or reports the existing entry.
var beginScript = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'state', 'fp', 'body')
if not cur[1] then
  redis.call('HSET', KEYS[1], 'state', 'pending', 'fp', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  return {'acquired', ARGV[1], ''}
end
return {cur[1], cur[2] or '', cur[3] or ''}
`)

// IdempotencyStore keeps purchase responses under their Idempotency-Key
// together with a fingerprint of the request that produced them.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Begin claims key for the request identified by fingerprint. The claim
// lapses after lockTTL unless Complete runs first.
func (s *IdempotencyStore) Begin(ctx context.Context, key, fingerprint string, lockTTL time.Duration) (IdemEntry, error) {
	const op = "redisrepo.IdempotencyStore.Begin"

	vals, err := beginScript.Run(ctx, s.rdb, []string{key}, fingerprint, lockTTL.Milliseconds()).StringSlice()
	if err != nil {
		return IdemEntry{}, fmt.Errorf("%s:%w", op, err)
	}
	if len(vals) != 3 {
		return IdemEntry{}, fmt.Errorf("%s: unexpected reply %v", op, vals)
	}

	return IdemEntry{State: IdemState(vals[0]), Fingerprint: vals[1], Payload: vals[2]}, nil
}

// Complete stores the response and keeps it for the store TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint, payload string) error {
	const op = "redisrepo.IdempotencyStore.Complete"

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "state", string(IdemDone), "fp", fingerprint, "body", payload)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Abort drops the claim so the client can retry with the same key.
func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redisrepo.IdempotencyStore.Abort:%w", err)
	}
	return nil
}
