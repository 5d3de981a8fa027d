package ports

import (
	"context"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
)

// RateLimiter evaluates a request against every configured quota window of a tenant.
// Implementations MUST be safe for concurrent use.
type RateLimiter interface {
	// Check consumes one request unit in each configured window. A request over any limit is still counted.
	Check(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict
	// Usage reports current counts without incrementing.
	Usage(ctx context.Context, t *tenant.Tenant, now time.Time) ([]governance.WindowUsage, error)
	// Reset clears the current-bucket counters of every window.
	Reset(ctx context.Context, tenantID string, now time.Time) error
}
