package ports

import (
	"context"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
)

// Governor is the single admission entry point called once per inbound request.
type Governor interface {
	Check(ctx context.Context, tenantID string, now time.Time) governance.Decision
}

// CostSnapshotProvider serves cached spend. Get never calls the cost ledger synchronously.
type CostSnapshotProvider interface {
	Get(tenantID string) cost.Snapshot
	Invalidate(tenantID string)
	// NextRefresh is the next scheduled refresh after now.
	NextRefresh(now time.Time) time.Time
}

// BudgetEnforcer classifies spend against a tenant budget.
type BudgetEnforcer interface {
	Evaluate(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict
	Status(ctx context.Context, t *tenant.Tenant, now time.Time) cost.BudgetStatus
}

// CostRefresher forces a synchronous cost refresh for one tenant. Admin use only.
type CostRefresher interface {
	Refresh(ctx context.Context, tenantID string) error
}
