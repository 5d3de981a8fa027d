package cost

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// ServiceCost is one line of a cost-by-service breakdown.
type ServiceCost struct {
	Service string          `json:"service"`
	Cost    decimal.Decimal `json:"cost"`
}

// Report is what the cost ledger returns for a tenant and period.
type Report struct {
	TenantID    string          `json:"tenant_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Breakdown   []ServiceCost   `json:"breakdown"`
}

// Snapshot is the cached view of a tenant's spend used on the request path.
type Snapshot struct {
	TenantID      string          `json:"tenant_id"`
	CurrentSpend  decimal.Decimal `json:"current_spend"`
	ForecastSpend decimal.Decimal `json:"forecast_spend"`
	Currency      string          `json:"currency"`
	Breakdown     []ServiceCost   `json:"breakdown"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	AsOf          time.Time       `json:"as_of"`
	// Known is false until the first successful fetch for the tenant.
	Known bool `json:"known"`
	Stale bool `json:"stale"`
}

// BillingPeriod returns the UTC calendar month containing now.
func BillingPeriod(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Forecast extrapolates spend linearly to the end of the period:
// spend * (period length / elapsed length).
func Forecast(spend decimal.Decimal, start, end, asOf time.Time) decimal.Decimal {
	elapsed := asOf.Sub(start)
	period := end.Sub(start)
	if elapsed <= 0 || period <= 0 {
		return spend
	}
	if elapsed >= period {
		return spend
	}
	return spend.Mul(decimal.NewFromInt(int64(period))).Div(decimal.NewFromInt(int64(elapsed)))
}
