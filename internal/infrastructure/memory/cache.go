package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache implements ports.Cache in process memory.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   utils.Clock
}

func NewCache(clock utils.Clock) *Cache {
	return &Cache{entries: make(map[string]cacheEntry), clock: utils.ClockOrSystem(clock)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
