package ports

import (
	"context"
	"strings"
	"time"
)

// Cache is a byte cache shared by engine instances. Callers namespace their keys with
// CacheKey; errors mean the cache is unavailable and callers fall through to the source.
type Cache interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set with a non-positive ttl keeps the entry until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CacheKey joins the non-empty parts with ":".
func CacheKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}
