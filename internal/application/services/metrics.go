package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

// GovernanceMetrics holds the collectors of the governance engine. A nil *GovernanceMetrics is a no-op.
type GovernanceMetrics struct {
	Decisions         *prometheus.CounterVec
	CheckDuration     prometheus.Histogram
	StoreFailures     *prometheus.CounterVec
	BreakerState      prometheus.Gauge
	DegradedDecisions prometheus.Counter
	CostRefreshes     *prometheus.CounterVec
	StaleSnapshots    prometheus.Counter
	AlertsEmitted     *prometheus.CounterVec
	AlertsDropped     prometheus.Counter
	ReviewFlags       prometheus.Counter
}

// NewGovernanceMetrics registers all collectors against reg. A nil reg creates unregistered collectors.
func NewGovernanceMetrics(reg prometheus.Registerer) *GovernanceMetrics {
	f := promauto.With(reg)
	return &GovernanceMetrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_decisions_total",
			Help: "Admission decisions by action and reason",
		}, []string{"action", "reason"}),
		CheckDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "governance_check_duration_seconds",
			Help:    "Latency of a full governance check",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		StoreFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_counter_store_failures_total",
			Help: "Counter store operations that failed or timed out",
		}, []string{"op"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "governance_counter_store_breaker_state",
			Help: "Counter store circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		DegradedDecisions: f.NewCounter(prometheus.CounterOpts{
			Name: "governance_degraded_decisions_total",
			Help: "Requests admitted without rate limit enforcement because the counter store was unavailable",
		}),
		CostRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_cost_refreshes_total",
			Help: "Cost snapshot refreshes by result",
		}, []string{"result"}),
		StaleSnapshots: f.NewCounter(prometheus.CounterOpts{
			Name: "governance_stale_snapshots_total",
			Help: "Budget evaluations served from a stale or missing cost snapshot",
		}),
		AlertsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_alerts_emitted_total",
			Help: "Alert events handed to the notifier",
		}, []string{"kind"}),
		AlertsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "governance_alerts_dropped_total",
			Help: "Alert events dropped because the dispatch queue was full or closed",
		}),
		ReviewFlags: f.NewCounter(prometheus.CounterOpts{
			Name: "governance_review_flags_total",
			Help: "Decisions admitted after an unexpected internal error",
		}),
	}
}

func (m *GovernanceMetrics) observeDecision(d governance.Decision, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(d.Action.String(), d.Reason.String()).Inc()
	m.CheckDuration.Observe(elapsed.Seconds())
	if d.Degraded {
		m.DegradedDecisions.Inc()
	}
	if d.FlaggedForReview {
		m.ReviewFlags.Inc()
	}
}

func (m *GovernanceMetrics) storeFailure(op string) {
	if m == nil {
		return
	}
	m.StoreFailures.WithLabelValues(op).Inc()
}

func (m *GovernanceMetrics) breakerState(s CircuitState) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(s))
}

func (m *GovernanceMetrics) costRefresh(result string) {
	if m == nil {
		return
	}
	m.CostRefreshes.WithLabelValues(result).Inc()
}

func (m *GovernanceMetrics) staleSnapshot() {
	if m == nil {
		return
	}
	m.StaleSnapshots.Inc()
}

func (m *GovernanceMetrics) alertEmitted(kind string) {
	if m == nil {
		return
	}
	m.AlertsEmitted.WithLabelValues(kind).Inc()
}

func (m *GovernanceMetrics) alertDropped() {
	if m == nil {
		return
	}
	m.AlertsDropped.Inc()
}
