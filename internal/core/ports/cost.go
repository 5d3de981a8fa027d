package ports

import (
	"context"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
)

// CostLedger reports accumulated spend. It is polled in the background and never called on the request path.
type CostLedger interface {
	PeriodCosts(ctx context.Context, tenantID string, start, end time.Time) (*cost.Report, error)
}
