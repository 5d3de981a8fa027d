package services_test

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
)

var baseTime = time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTenant(id string, rpm, rpd, rpmo int64) *tenant.Tenant {
	return &tenant.Tenant{
		ID:           id,
		Name:         id,
		Status:       tenant.TenantStatusActive,
		AdminContact: id + "@example.com",
		Quota: tenant.QuotaConfig{
			RequestsPerMinute: rpm,
			RequestsPerDay:    rpd,
			RequestsPerMonth:  rpmo,
		},
	}
}

func withBudget(t *tenant.Tenant, limit int64, pct int, mode governance.EnforcementMode) *tenant.Tenant {
	t.Budget = tenant.BudgetConfig{
		MonthlyLimit:      decimal.NewFromInt(limit),
		AlertThresholdPct: pct,
		EnforcementMode:   mode,
	}
	return t
}
