package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// GovernorService is the admission entry point: tenant lookup, then rate limits, then budget.
type GovernorService struct {
	directory     ports.TenantDirectory
	limiter       ports.RateLimiter
	budget        ports.BudgetEnforcer
	reviews       ports.ReviewLog
	reviewTimeout time.Duration
	metrics       *GovernanceMetrics
	logger        *logrus.Logger
	pending       sync.WaitGroup
}

func NewGovernorService(directory ports.TenantDirectory, limiter ports.RateLimiter, budget ports.BudgetEnforcer, reviews ports.ReviewLog, metrics *GovernanceMetrics, logger *logrus.Logger) *GovernorService {
	return &GovernorService{
		directory:     directory,
		limiter:       limiter,
		budget:        budget,
		reviews:       reviews,
		reviewTimeout: 2 * time.Second,
		metrics:       metrics,
		logger:        logger,
	}
}

// Check never returns an error. Unknown and disabled tenants fail closed; every other
// internal failure fails open and is flagged for review.
func (g *GovernorService) Check(ctx context.Context, tenantID string, now time.Time) (d governance.Decision) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d = g.failOpen(tenantID, now, fmt.Errorf("panic in governance check: %v", r))
		}
		g.metrics.observeDecision(d, time.Since(started))
		if g.logger != nil && !d.Allowed() {
			g.logger.WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"action":    d.Action.String(),
				"reason":    d.Reason.String(),
			}).Debug("request not admitted")
		}
	}()

	if tenantID == "" {
		return governance.Deny(governance.ReasonUnknownTenant)
	}
	t, err := g.directory.GetTenant(ctx, tenantID)
	switch {
	case errors.Is(err, ports.ErrTenantNotFound):
		return governance.Deny(governance.ReasonUnknownTenant)
	case err != nil:
		return g.failOpen(tenantID, now, fmt.Errorf("tenant lookup: %w", err))
	case t == nil:
		return governance.Deny(governance.ReasonUnknownTenant)
	}
	if !t.CanAccess() {
		return governance.Deny(governance.ReasonTenantDisabled)
	}

	rl := g.limiter.Check(ctx, t, now)
	if rl.Action != governance.ActionAllow {
		d = governance.Throttle(rl.Reason, rl.RetryAfter)
		d.Degraded = rl.Degraded
		return d
	}
	return merge(rl, g.budget.Evaluate(ctx, t, now))
}

// merge combines an admitting rate-limit verdict with the budget verdict; budget Throttle and Deny override.
func merge(rl, bv governance.Verdict) governance.Decision {
	var d governance.Decision
	switch bv.Action {
	case governance.ActionAllow:
		d = governance.Allow(bv.Reason)
	case governance.ActionThrottle:
		d = governance.Throttle(bv.Reason, bv.RetryAfter)
	case governance.ActionDeny:
		d = governance.Deny(bv.Reason)
	default:
		d = governance.Allow(governance.ReasonNone)
	}
	d.Degraded = rl.Degraded || bv.Degraded
	d.StaleBudget = bv.Stale
	return d
}

func (g *GovernorService) failOpen(tenantID string, now time.Time, err error) governance.Decision {
	if g.logger != nil {
		g.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "review": true}).WithError(err).Error("governance check failed unexpectedly, admitting request")
	}
	if g.reviews != nil {
		rec := governance.NewReviewRecord(tenantID, now, err)
		g.pending.Add(1)
		go func() {
			defer g.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), g.reviewTimeout)
			defer cancel()
			if rerr := g.reviews.Record(ctx, rec); rerr != nil && g.logger != nil {
				g.logger.WithField("tenant_id", tenantID).WithError(rerr).Warn("failed to record decision for review")
			}
		}()
	}
	d := governance.Allow(governance.ReasonNone)
	d.FlaggedForReview = true
	return d
}

// Wait blocks until pending review writes have finished.
func (g *GovernorService) Wait() { g.pending.Wait() }
