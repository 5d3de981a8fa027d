package tenant

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

type Tenant struct {
	ID           string       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Status       TenantStatus `json:"status" db:"status"`
	AdminContact string       `json:"admin_contact" db:"admin_contact"`
	Quota        QuotaConfig  `json:"quota"`
	Budget       BudgetConfig `json:"budget"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusCanceled  TenantStatus = "canceled"
)

// CanAccess returns true if the tenant may send traffic at all.
func (t *Tenant) CanAccess() bool {
	return t.Status == TenantStatusActive
}

// QuotaConfig holds request quotas. Zero means the window is unlimited.
type QuotaConfig struct {
	RequestsPerMinute int64 `json:"requests_per_minute"`
	RequestsPerDay    int64 `json:"requests_per_day"`
	RequestsPerMonth  int64 `json:"requests_per_month"`
}

// Limit returns the configured limit for a window; 0 means unlimited.
func (q QuotaConfig) Limit(w governance.Window) int64 {
	var l int64
	switch w {
	case governance.WindowMinute:
		l = q.RequestsPerMinute
	case governance.WindowDay:
		l = q.RequestsPerDay
	case governance.WindowMonth:
		l = q.RequestsPerMonth
	}
	if l < 0 {
		return 0
	}
	return l
}

// BudgetConfig holds the monthly spend policy. A zero MonthlyLimit disables budget enforcement.
type BudgetConfig struct {
	MonthlyLimit      decimal.Decimal            `json:"monthly_limit"`
	AlertThresholdPct int                        `json:"alert_threshold_pct"`
	EnforcementMode   governance.EnforcementMode `json:"enforcement_mode"`
}

const DefaultAlertThresholdPct = 90

func (b BudgetConfig) Enabled() bool { return b.MonthlyLimit.IsPositive() }

// ThresholdAmount is the spend at which the warning state begins.
func (b BudgetConfig) ThresholdAmount() decimal.Decimal {
	return b.MonthlyLimit.Mul(decimal.NewFromInt(int64(b.AlertThresholdPct))).Div(decimal.NewFromInt(100))
}

// Classify places spend into the budget state machine.
func (b BudgetConfig) Classify(spend decimal.Decimal) governance.BudgetLevel {
	switch {
	case !b.Enabled():
		return governance.BudgetLevelNone
	case spend.GreaterThanOrEqual(b.MonthlyLimit):
		return governance.BudgetLevelExceeded
	case spend.GreaterThanOrEqual(b.ThresholdAmount()):
		return governance.BudgetLevelWarning
	default:
		return governance.BudgetLevelNone
	}
}

func (b BudgetConfig) Validate() error {
	if b.MonthlyLimit.IsNegative() {
		return fmt.Errorf("monthly_limit must be >= 0, got %s", b.MonthlyLimit)
	}
	if b.AlertThresholdPct < 0 || b.AlertThresholdPct > 100 {
		return fmt.Errorf("alert_threshold_pct must be within 0-100, got %d", b.AlertThresholdPct)
	}
	return nil
}

func (t *Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if err := t.Budget.Validate(); err != nil {
		return fmt.Errorf("tenant %s: %w", t.ID, err)
	}
	return nil
}
