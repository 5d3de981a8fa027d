package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// incrementScript sets the expiry only when the key is created (or has somehow lost it),
// so a busy window never slides forward.
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// casScript treats a missing key as the empty string.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then cur = '' end
if cur == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2])
  return 1
end
return 0
`)

// CounterStore implements ports.CounterStore on Redis. Keys are used as given.
type CounterStore struct {
	r redis.Cmdable
}

func NewCounterStore(r redis.Cmdable) *CounterStore {
	return &CounterStore{r: r}
}

func (s *CounterStore) Increment(ctx context.Context, key string, expireIn time.Duration) (int64, time.Duration, error) {
	ms := expireIn.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	res, err := incrementScript.Run(ctx, s.r, []string{key}, ms).Result()
	if err != nil {
		return 0, 0, unavailable("increment", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("increment %s: unexpected script reply %v", key, res)
	}
	count, ok1 := vals[0].(int64)
	ttl, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("increment %s: unexpected script reply %v", key, res)
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}

func (s *CounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.r.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", err)
	}
	return val, true, nil
}

func (s *CounterStore) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	n, err := casScript.Run(ctx, s.r, []string{key}, prev, next).Int64()
	if err != nil {
		return false, unavailable("cas", err)
	}
	return n == 1, nil
}

func (s *CounterStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.r.Del(ctx, keys...).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", ports.ErrStoreUnavailable, op, err)
}
