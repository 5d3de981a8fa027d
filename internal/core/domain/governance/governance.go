package governance

import (
	"fmt"
	"math"
	"time"
)

// Action is the admission outcome for a single request.
type Action int

const (
	ActionAllow Action = iota
	ActionThrottle
	ActionDeny
)

var actionNames = [...]string{
	ActionAllow:    "allow",
	ActionThrottle: "throttle",
	ActionDeny:     "deny",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Reason explains an admission outcome.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonRateLimitMinute
	ReasonRateLimitDay
	ReasonRateLimitMonth
	ReasonBudgetWarning
	ReasonBudgetExceeded
	ReasonUnknownTenant
	ReasonTenantDisabled
)

var reasonNames = [...]string{
	ReasonNone:            "none",
	ReasonRateLimitMinute: "rate_limit_minute",
	ReasonRateLimitDay:    "rate_limit_day",
	ReasonRateLimitMonth:  "rate_limit_month",
	ReasonBudgetWarning:   "budget_warning",
	ReasonBudgetExceeded:  "budget_exceeded",
	ReasonUnknownTenant:   "unknown_tenant",
	ReasonTenantDisabled:  "tenant_disabled",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return reasonNames[r]
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// IsRateLimit reports whether the reason comes from a quota window.
func (r Reason) IsRateLimit() bool {
	switch r {
	case ReasonRateLimitMinute, ReasonRateLimitDay, ReasonRateLimitMonth:
		return true
	default:
		return false
	}
}

// Verdict is the outcome of one governance component (rate limiter or budget enforcer).
type Verdict struct {
	Action     Action
	Reason     Reason
	RetryAfter time.Duration
	// Degraded is set when enforcement was skipped because a shared store was unavailable.
	Degraded bool
	// Stale is set when the verdict was computed from a stale or missing cost snapshot.
	Stale bool
}

// AllowVerdict returns an admitting verdict carrying an informational reason.
func AllowVerdict(reason Reason) Verdict { return Verdict{Action: ActionAllow, Reason: reason} }

// Decision is returned once per request by the governor.
type Decision struct {
	Action            Action `json:"action"`
	Reason            Reason `json:"reason"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Degraded          bool   `json:"degraded,omitempty"`
	StaleBudget       bool   `json:"stale_budget,omitempty"`
	FlaggedForReview  bool   `json:"flagged_for_review,omitempty"`
}

func Allow(reason Reason) Decision { return Decision{Action: ActionAllow, Reason: reason} }

func Deny(reason Reason) Decision { return Decision{Action: ActionDeny, Reason: reason} }

// Throttle builds a retryable decision. retryAfter is rounded up to whole seconds, minimum one.
func Throttle(reason Reason, retryAfter time.Duration) Decision {
	return Decision{Action: ActionThrottle, Reason: reason, RetryAfterSeconds: RetryAfterSeconds(retryAfter)}
}

// RetryAfterSeconds converts a wait into the whole seconds a client should back off.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Action == ActionAllow }
