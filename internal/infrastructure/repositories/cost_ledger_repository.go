package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/db"
)

type serviceCostRow struct {
	Service  string          `db:"service"`
	Total    decimal.Decimal `db:"total"`
	Currency string          `db:"currency"`
}

// CostLedgerRepository sums recorded tenant costs per service.
type CostLedgerRepository struct {
	db *db.Database
}

func NewCostLedgerRepository(database *db.Database) *CostLedgerRepository {
	return &CostLedgerRepository{db: database}
}

// PeriodCosts returns spend in [start, end) with a per-service breakdown.
func (r *CostLedgerRepository) PeriodCosts(ctx context.Context, tenantID string, start, end time.Time) (*cost.Report, error) {
	query := `
		SELECT service, COALESCE(SUM(amount), 0) AS total, MAX(currency) AS currency
		FROM tenant_costs
		WHERE tenant_id = $1 AND incurred_at >= $2 AND incurred_at < $3
		GROUP BY service
		ORDER BY service`
	var rows []serviceCostRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, tenantID, start, end); err != nil {
		return nil, fmt.Errorf("%w: tenant %s: %v", ports.ErrCostLedgerUnavailable, tenantID, err)
	}
	report := &cost.Report{
		TenantID:    tenantID,
		PeriodStart: start,
		PeriodEnd:   end,
		Total:       decimal.Zero,
		Currency:    cost.DefaultCurrency,
		Breakdown:   make([]cost.ServiceCost, 0, len(rows)),
	}
	for i, row := range rows {
		if i == 0 && row.Currency != "" {
			report.Currency = row.Currency
		}
		report.Total = report.Total.Add(row.Total)
		report.Breakdown = append(report.Breakdown, cost.ServiceCost{Service: row.Service, Cost: row.Total})
	}
	return report, nil
}

// Record appends one cost line. Used by ingestion jobs and seeding.
func (r *CostLedgerRepository) Record(ctx context.Context, tenantID, service string, amount decimal.Decimal, currency string, at time.Time) error {
	if currency == "" {
		currency = cost.DefaultCurrency
	}
	query := `INSERT INTO tenant_costs (tenant_id, service, amount, currency, incurred_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.DB.ExecContext(ctx, query, tenantID, service, amount, currency, at.UTC()); err != nil {
		return fmt.Errorf("failed to record cost: %w", err)
	}
	return nil
}
