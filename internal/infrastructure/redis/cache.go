package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// RedisCache implements ports.Cache using a Redis client. It backs the tenant directory cache.
type RedisCache struct {
	r      redis.Cmdable
	prefix string
}

func NewRedisCache(r redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{r: r, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, namespaced(c.prefix, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value. A non-positive ttl stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.r.Set(ctx, namespaced(c.prefix, key), value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, namespaced(c.prefix, key)).Err()
}

func namespaced(prefix, key string) string {
	return ports.CacheKey(prefix, key)
}
