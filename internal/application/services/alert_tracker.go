package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

const (
	alertCASAttempts = 3
	// alertConfirmTTL bounds how long a level seen in the store is trusted without re-reading it.
	alertConfirmTTL = 2 * time.Second
)

type confirmedState struct {
	value string
	at    time.Time
}

// AlertTracker de-duplicates budget alerts across instances. The last alerted level is stored
// per tenant as "<YYYY-MM>:<level>" under a key without expiry and only changed by compare-and-set,
// so exactly one instance wins each upward transition and emits it.
type AlertTracker struct {
	counter   *WindowCounter
	notifier  ports.Notifier
	keyPrefix string
	logger    *logrus.Logger

	// confirmed remembers, per tenant, the value this instance last saw stored.
	confirmed sync.Map
}

func NewAlertTracker(counter *WindowCounter, notifier ports.Notifier, keyPrefix string, logger *logrus.Logger) *AlertTracker {
	if keyPrefix == "" {
		keyPrefix = "governance"
	}
	return &AlertTracker{counter: counter, notifier: notifier, keyPrefix: keyPrefix, logger: logger}
}

func AlertStateKey(prefix, tenantID string) string {
	return prefix + ":alert:" + tenantID
}

func encodeAlertState(period string, level governance.BudgetLevel) string {
	return period + ":" + level.String()
}

// decodeAlertState returns BudgetLevelNone for values from another billing period or unparsable values.
func decodeAlertState(raw, period string) governance.BudgetLevel {
	p, l, ok := strings.Cut(raw, ":")
	if !ok || p != period {
		return governance.BudgetLevelNone
	}
	level, err := governance.ParseBudgetLevel(l)
	if err != nil {
		return governance.BudgetLevelNone
	}
	return level
}

func (a *AlertTracker) isConfirmed(tenantID, want string, now time.Time) bool {
	v, ok := a.confirmed.Load(tenantID)
	if !ok {
		return false
	}
	c := v.(confirmedState)
	if c.value != want || now.Sub(c.at) >= alertConfirmTTL || now.Before(c.at) {
		a.confirmed.Delete(tenantID)
		return false
	}
	return true
}

func (a *AlertTracker) confirm(tenantID, value string, now time.Time) {
	a.confirmed.Store(tenantID, confirmedState{value: value, at: now})
}

// Observe records level for the tenant and emits an event when it moved upward. Moves down,
// including back to none, are stored as well so the next crossing alerts again. It returns
// true when this call emitted.
func (a *AlertTracker) Observe(ctx context.Context, t *tenant.Tenant, level governance.BudgetLevel, snap cost.Snapshot, now time.Time) bool {
	period := now.UTC().Format("2006-01")
	want := encodeAlertState(period, level)
	if a.isConfirmed(t.ID, want, now) {
		return false
	}
	key := AlertStateKey(a.keyPrefix, t.ID)
	for attempt := 0; attempt < alertCASAttempts; attempt++ {
		raw, _, err := a.counter.Get(ctx, key)
		if err != nil {
			a.logFailure(t.ID, err)
			return false
		}
		prev := decodeAlertState(raw, period)
		if prev == level {
			// includes none over an empty key or a previous period: nothing to write
			a.confirm(t.ID, want, now)
			return false
		}
		swapped, err := a.counter.CompareAndSwap(ctx, key, raw, want)
		if err != nil {
			a.logFailure(t.ID, err)
			return false
		}
		if !swapped {
			continue
		}
		a.confirm(t.ID, want, now)
		if level <= prev {
			return false
		}
		a.emit(t, level, snap, now)
		return true
	}
	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "level": level.String()}).Warn("budget alert state contended, skipping")
	}
	return false
}

func (a *AlertTracker) emit(t *tenant.Tenant, level governance.BudgetLevel, snap cost.Snapshot, now time.Time) {
	if a.notifier == nil {
		return
	}
	kind := notification.KindBudgetWarning
	if level == governance.BudgetLevelExceeded {
		kind = notification.KindBudgetExceeded
	}
	ev := notification.NewEvent(t.ID, kind, now, map[string]any{
		"current_spend":       snap.CurrentSpend.String(),
		"forecast_spend":      snap.ForecastSpend.String(),
		"monthly_limit":       t.Budget.MonthlyLimit.String(),
		"alert_threshold_pct": t.Budget.AlertThresholdPct,
		"enforcement_mode":    t.Budget.EnforcementMode.String(),
		"currency":            snap.Currency,
	})
	ev.Recipient = t.AdminContact
	a.notifier.Notify(ev)
	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "kind": string(kind)}).Info("budget alert emitted")
	}
}

func (a *AlertTracker) logFailure(tenantID string, err error) {
	if a.logger != nil {
		a.logger.WithField("tenant_id", tenantID).WithError(err).Warn("budget alert state unavailable, alert skipped")
	}
}
