package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// BudgetEnforcerService classifies cached spend against a tenant budget. It keeps no state
// of its own; alert de-duplication lives in the shared store through AlertTracker.
type BudgetEnforcerService struct {
	snapshots ports.CostSnapshotProvider
	alerts    *AlertTracker
	metrics   *GovernanceMetrics
	logger    *logrus.Logger
}

func NewBudgetEnforcerService(snapshots ports.CostSnapshotProvider, alerts *AlertTracker, metrics *GovernanceMetrics, logger *logrus.Logger) *BudgetEnforcerService {
	return &BudgetEnforcerService{snapshots: snapshots, alerts: alerts, metrics: metrics, logger: logger}
}

func (s *BudgetEnforcerService) Evaluate(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict {
	b := t.Budget
	if !b.Enabled() {
		return governance.AllowVerdict(governance.ReasonNone)
	}
	snap := s.snapshots.Get(t.ID)
	if !snap.Known {
		s.metrics.staleSnapshot()
		v := governance.AllowVerdict(governance.ReasonNone)
		v.Stale = true
		return v
	}
	if snap.Stale {
		s.metrics.staleSnapshot()
	}
	level := b.Classify(snap.CurrentSpend)
	if s.alerts != nil {
		s.alerts.Observe(ctx, t, level, snap, now)
	}
	v := s.verdictFor(b.EnforcementMode, level, now)
	v.Stale = snap.Stale
	if s.logger != nil && level > governance.BudgetLevelNone {
		s.logger.WithFields(logrus.Fields{
			"tenant_id": t.ID,
			"level":     level.String(),
			"action":    v.Action.String(),
			"reason":    v.Reason.String(),
		}).Debug("budget evaluated")
	}
	return v
}

func (s *BudgetEnforcerService) verdictFor(mode governance.EnforcementMode, level governance.BudgetLevel, now time.Time) governance.Verdict {
	switch level {
	case governance.BudgetLevelWarning:
		return governance.AllowVerdict(governance.ReasonBudgetWarning)
	case governance.BudgetLevelExceeded:
		switch mode {
		case governance.EnforcementWarn:
			return governance.AllowVerdict(governance.ReasonBudgetExceeded)
		case governance.EnforcementThrottle:
			return governance.Verdict{
				Action:     governance.ActionThrottle,
				Reason:     governance.ReasonBudgetExceeded,
				RetryAfter: s.snapshots.NextRefresh(now).Sub(now),
			}
		case governance.EnforcementBlock:
			return governance.Verdict{Action: governance.ActionDeny, Reason: governance.ReasonBudgetExceeded}
		}
		// unknown modes enforce like block
		return governance.Verdict{Action: governance.ActionDeny, Reason: governance.ReasonBudgetExceeded}
	default:
		return governance.AllowVerdict(governance.ReasonNone)
	}
}

// Status reports the budget of a tenant for administrators. It never triggers alerts.
func (s *BudgetEnforcerService) Status(_ context.Context, t *tenant.Tenant, now time.Time) cost.BudgetStatus {
	b := t.Budget
	snap := s.snapshots.Get(t.ID)
	start, end := cost.BillingPeriod(now)
	st := cost.BudgetStatus{
		TenantID:          t.ID,
		MonthlyLimit:      b.MonthlyLimit,
		AlertThresholdPct: b.AlertThresholdPct,
		EnforcementMode:   b.EnforcementMode,
		CurrentSpend:      snap.CurrentSpend,
		ForecastSpend:     snap.ForecastSpend,
		Currency:          snap.Currency,
		Breakdown:         snap.Breakdown,
		PeriodStart:       start,
		PeriodEnd:         end,
		AsOf:              snap.AsOf,
		Known:             snap.Known,
		Stale:             snap.Stale || !snap.Known,
	}
	if !b.Enabled() {
		st.Status = cost.BudgetHealthUnbudgeted
		st.Level = governance.BudgetLevelNone.String()
		st.Remaining = decimal.Zero
		return st
	}
	level := b.Classify(snap.CurrentSpend)
	st.Status = cost.HealthFor(level)
	st.Level = level.String()
	st.Remaining = decimal.Max(b.MonthlyLimit.Sub(snap.CurrentSpend), decimal.Zero)
	st.UsagePct = cost.Percent(snap.CurrentSpend, b.MonthlyLimit)
	st.ProjectedPct = cost.Percent(snap.ForecastSpend, b.MonthlyLimit)
	return st
}
