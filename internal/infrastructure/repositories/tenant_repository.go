package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/db"
)

const tenantColumns = `id, name, status, admin_contact, requests_per_minute, requests_per_day, requests_per_month,
		monthly_budget, alert_threshold_pct, enforcement_mode, updated_at`

type tenantRow struct {
	ID                string          `db:"id"`
	Name              string          `db:"name"`
	Status            string          `db:"status"`
	AdminContact      string          `db:"admin_contact"`
	RequestsPerMinute int64           `db:"requests_per_minute"`
	RequestsPerDay    int64           `db:"requests_per_day"`
	RequestsPerMonth  int64           `db:"requests_per_month"`
	MonthlyBudget     decimal.Decimal `db:"monthly_budget"`
	AlertThresholdPct int             `db:"alert_threshold_pct"`
	EnforcementMode   string          `db:"enforcement_mode"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// TenantRepository reads tenant governance settings from Postgres.
type TenantRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewTenantRepository(database *db.Database, logger *logrus.Logger) *TenantRepository {
	return &TenantRepository{db: database, logger: logger}
}

// GetTenant retrieves a tenant by ID
func (r *TenantRepository) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	var row tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", id, ports.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return r.toDomain(row), nil
}

// ListTenants returns every tenant ordered by id.
func (r *TenantRepository) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	var rows []tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY id`
	if err := r.db.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	out := make([]*tenant.Tenant, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.toDomain(row))
	}
	return out, nil
}

func (r *TenantRepository) toDomain(row tenantRow) *tenant.Tenant {
	mode, err := governance.ParseEnforcementMode(row.EnforcementMode)
	if err != nil && r.logger != nil {
		r.logger.WithField("tenant_id", row.ID).WithError(err).Warn("invalid enforcement mode, using block")
	}
	return &tenant.Tenant{
		ID:           row.ID,
		Name:         row.Name,
		Status:       tenant.TenantStatus(row.Status),
		AdminContact: row.AdminContact,
		Quota: tenant.QuotaConfig{
			RequestsPerMinute: row.RequestsPerMinute,
			RequestsPerDay:    row.RequestsPerDay,
			RequestsPerMonth:  row.RequestsPerMonth,
		},
		Budget: tenant.BudgetConfig{
			MonthlyLimit:      row.MonthlyBudget,
			AlertThresholdPct: row.AlertThresholdPct,
			EnforcementMode:   mode,
		},
		UpdatedAt: row.UpdatedAt,
	}
}
