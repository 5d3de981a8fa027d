package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// cachedTenant also records misses so unknown ids do not hit the directory on every request.
type cachedTenant struct {
	Tenant  *tenant.Tenant `json:"tenant,omitempty"`
	Missing bool           `json:"missing,omitempty"`
}

// CachingTenantDirectory decorates a TenantDirectory with cache-aside and coalesced loads.
// Configuration changes propagate once the cached entry expires.
type CachingTenantDirectory struct {
	inner       ports.TenantDirectory
	cache       ports.Cache
	ttl         time.Duration
	negativeTTL time.Duration
	sf          singleflight.Group
}

func NewCachingTenantDirectory(inner ports.TenantDirectory, cache ports.Cache, ttl, negativeTTL time.Duration) *CachingTenantDirectory {
	return &CachingTenantDirectory{inner: inner, cache: cache, ttl: ttl, negativeTTL: negativeTTL}
}

func tenantKey(id string) string { return ports.CacheKey("tenant", "id", id) }

func (c *CachingTenantDirectory) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	if v, ok := cacheGet[cachedTenant](c.cache, ctx, tenantKey(id)); ok {
		if v.Missing || v.Tenant == nil {
			return nil, fmt.Errorf("tenant %s: %w", id, ports.ErrTenantNotFound)
		}
		return v.Tenant, nil
	}
	res, err, _ := c.sf.Do(id, func() (any, error) {
		t, err := c.inner.GetTenant(ctx, id)
		switch {
		case errors.Is(err, ports.ErrTenantNotFound):
			if c.negativeTTL > 0 {
				cacheSetSilently(c.cache, ctx, tenantKey(id), cachedTenant{Missing: true}, c.negativeTTL)
			}
			return nil, err
		case err != nil:
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, tenantKey(id), cachedTenant{Tenant: t}, c.ttl)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	t, ok := res.(*tenant.Tenant)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return t, nil
}

// ListTenants is not cached; it only runs at startup and from admin calls.
func (c *CachingTenantDirectory) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return c.inner.ListTenants(ctx)
}

// Invalidate drops the cached entry for id.
func (c *CachingTenantDirectory) Invalidate(ctx context.Context, id string) {
	if c.cache != nil {
		_ = c.cache.Delete(ctx, tenantKey(id))
	}
}
