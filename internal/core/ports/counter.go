package ports

import (
	"context"
	"time"
)

// CounterStore is the shared, network-accessible key/value store used for quota counters
// and alert state. Implementations MUST be safe for concurrent use across processes.
type CounterStore interface {
	// Increment atomically adds one to key. The expiry is set to expireIn only when the key
	// is created, so an existing window is never extended. Returns the new count and the
	// remaining time to live.
	Increment(ctx context.Context, key string, expireIn time.Duration) (count int64, ttl time.Duration, err error)
	// Get returns the raw value. ok=false if the key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// CompareAndSwap sets key to next only if its current value equals prev.
	// An empty prev matches a missing key. The key carries no expiry.
	CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error)
	// Delete removes keys; absence is not an error.
	Delete(ctx context.Context, keys ...string) error
}
