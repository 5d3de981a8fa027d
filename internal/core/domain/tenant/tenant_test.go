package tenant_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
)

func TestBudgetConfig_Classify(t *testing.T) {
	b := tenant.BudgetConfig{MonthlyLimit: decimal.NewFromInt(100), AlertThresholdPct: 80}
	assert.True(t, b.ThresholdAmount().Equal(decimal.NewFromInt(80)))

	cases := []struct {
		spend string
		want  governance.BudgetLevel
	}{
		{"0", governance.BudgetLevelNone},
		{"79.99", governance.BudgetLevelNone},
		{"80", governance.BudgetLevelWarning},
		{"99.99", governance.BudgetLevelWarning},
		{"100", governance.BudgetLevelExceeded},
		{"250", governance.BudgetLevelExceeded},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, b.Classify(decimal.RequireFromString(tc.spend)), tc.spend)
	}
}

func TestBudgetConfig_DisabledNeverClassifies(t *testing.T) {
	b := tenant.BudgetConfig{AlertThresholdPct: 80}
	assert.False(t, b.Enabled())
	assert.Equal(t, governance.BudgetLevelNone, b.Classify(decimal.NewFromInt(1_000_000)))
}

func TestBudgetConfig_ZeroThresholdWarnsImmediately(t *testing.T) {
	b := tenant.BudgetConfig{MonthlyLimit: decimal.NewFromInt(10), AlertThresholdPct: 0}
	assert.Equal(t, governance.BudgetLevelWarning, b.Classify(decimal.Zero))
}

func TestQuotaConfig_Limit(t *testing.T) {
	q := tenant.QuotaConfig{RequestsPerMinute: 10, RequestsPerDay: -1}
	assert.Equal(t, int64(10), q.Limit(governance.WindowMinute))
	assert.Equal(t, int64(0), q.Limit(governance.WindowDay), "negative is unlimited")
	assert.Equal(t, int64(0), q.Limit(governance.WindowMonth))
}

func TestTenant_Validate(t *testing.T) {
	assert.Error(t, (&tenant.Tenant{}).Validate())
	assert.Error(t, (&tenant.Tenant{ID: "a", Budget: tenant.BudgetConfig{AlertThresholdPct: 101}}).Validate())
	assert.Error(t, (&tenant.Tenant{ID: "a", Budget: tenant.BudgetConfig{MonthlyLimit: decimal.NewFromInt(-1)}}).Validate())
	assert.NoError(t, (&tenant.Tenant{ID: "a", Budget: tenant.BudgetConfig{AlertThresholdPct: 90}}).Validate())
}

func TestTenant_CanAccess(t *testing.T) {
	assert.True(t, (&tenant.Tenant{Status: tenant.TenantStatusActive}).CanAccess())
	assert.False(t, (&tenant.Tenant{Status: tenant.TenantStatusSuspended}).CanAccess())
	assert.False(t, (&tenant.Tenant{Status: tenant.TenantStatusCanceled}).CanAccess())
}
