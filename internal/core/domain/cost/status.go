package cost

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

// BudgetHealth is the coarse status reported to administrators.
type BudgetHealth string

const (
	BudgetHealthOK                BudgetHealth = "ok"
	BudgetHealthThresholdExceeded BudgetHealth = "threshold_exceeded"
	BudgetHealthOverBudget        BudgetHealth = "over_budget"
	BudgetHealthUnbudgeted        BudgetHealth = "unbudgeted"
)

// HealthFor maps a budget level to its reported status.
func HealthFor(level governance.BudgetLevel) BudgetHealth {
	switch level {
	case governance.BudgetLevelWarning:
		return BudgetHealthThresholdExceeded
	case governance.BudgetLevelExceeded:
		return BudgetHealthOverBudget
	default:
		return BudgetHealthOK
	}
}

// BudgetStatus is the full budget report for one tenant.
type BudgetStatus struct {
	TenantID          string                     `json:"tenant_id"`
	Status            BudgetHealth               `json:"status"`
	Level             string                     `json:"level"`
	MonthlyLimit      decimal.Decimal            `json:"monthly_limit"`
	CurrentSpend      decimal.Decimal            `json:"current_spend"`
	Remaining         decimal.Decimal            `json:"remaining"`
	UsagePct          decimal.Decimal            `json:"usage_pct"`
	AlertThresholdPct int                        `json:"alert_threshold_pct"`
	EnforcementMode   governance.EnforcementMode `json:"enforcement_mode"`
	ForecastSpend     decimal.Decimal            `json:"forecast_spend"`
	ProjectedPct      decimal.Decimal            `json:"projected_pct"`
	Currency          string                     `json:"currency"`
	Breakdown         []ServiceCost              `json:"breakdown"`
	PeriodStart       time.Time                  `json:"period_start"`
	PeriodEnd         time.Time                  `json:"period_end"`
	AsOf              time.Time                  `json:"as_of"`
	Known             bool                       `json:"known"`
	Stale             bool                       `json:"stale"`
}

// Percent returns part/whole*100 rounded to two places, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(2)
}
