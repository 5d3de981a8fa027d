package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// RateLimiterService enforces per-tenant fixed-window quotas (minute, day, month).
type RateLimiterService struct {
	counter   *WindowCounter
	notifier  ports.Notifier
	keyPrefix string
	logger    *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	KeyPrefix string
}

func NewRateLimiterService(counter *WindowCounter, notifier ports.Notifier, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	kp := "governance"
	if cfg != nil && cfg.KeyPrefix != "" {
		kp = cfg.KeyPrefix
	}
	return &RateLimiterService{counter: counter, notifier: notifier, keyPrefix: kp, logger: logger}
}

// CounterKey is the store key of one window bucket: {prefix}:{tenant}:{window}:{bucket start unix}.
func CounterKey(prefix, tenantID string, w governance.Window, bucketStart time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", prefix, tenantID, w, bucketStart.Unix())
}

// Check increments every configured window, denied or not. The first violated window in
// minute, day, month order decides the reason and retry hint.
func (s *RateLimiterService) Check(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict {
	verdict := governance.AllowVerdict(governance.ReasonNone)
	violated := false
	for _, w := range governance.Windows {
		limit := t.Quota.Limit(w)
		if limit == 0 {
			continue
		}
		start, end := w.Bounds(now)
		count, ttl, err := s.counter.Increment(ctx, CounterKey(s.keyPrefix, t.ID, w, start), end.Sub(now))
		if err != nil {
			verdict.Degraded = true
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "window": w.String()}).WithError(err).Warn("rate limiter: counter store unavailable, failing open")
			}
			continue
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "window": w.String(), "count": count, "limit": limit}).Debug("rate limiter window state")
		}
		if count <= limit {
			continue
		}
		if count == limit+1 {
			s.emitAlert(t, w, count, limit, now)
		}
		if !violated {
			violated = true
			if ttl <= 0 {
				ttl = end.Sub(now)
			}
			verdict.Action = governance.ActionDeny
			verdict.Reason = w.Reason()
			verdict.RetryAfter = ttl
		}
	}
	return verdict
}

// Usage reads the current bucket of every configured window without incrementing.
func (s *RateLimiterService) Usage(ctx context.Context, t *tenant.Tenant, now time.Time) ([]governance.WindowUsage, error) {
	out := make([]governance.WindowUsage, 0, len(governance.Windows))
	for _, w := range governance.Windows {
		limit := t.Quota.Limit(w)
		if limit == 0 {
			continue
		}
		start, end := w.Bounds(now)
		raw, ok, err := s.counter.Get(ctx, CounterKey(s.keyPrefix, t.ID, w, start))
		if err != nil {
			return nil, err
		}
		var count int64
		if ok {
			count, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s counter for tenant %s: %w", w, t.ID, err)
			}
		}
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, governance.WindowUsage{Window: w, Count: count, Limit: limit, Remaining: remaining, ResetAt: end})
	}
	return out, nil
}

// Reset deletes the current bucket of every window for the tenant.
func (s *RateLimiterService) Reset(ctx context.Context, tenantID string, now time.Time) error {
	keys := make([]string, 0, len(governance.Windows))
	for _, w := range governance.Windows {
		start, _ := w.Bounds(now)
		keys = append(keys, CounterKey(s.keyPrefix, tenantID, w, start))
	}
	if err := s.counter.Delete(ctx, keys...); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.WithField("tenant_id", tenantID).Info("rate limits reset")
	}
	return nil
}

// emitAlert runs only for the caller whose increment landed on limit+1, so each bucket alerts once.
func (s *RateLimiterService) emitAlert(t *tenant.Tenant, w governance.Window, count, limit int64, now time.Time) {
	if s.notifier == nil {
		return
	}
	ev := notification.NewEvent(t.ID, notification.KindRateLimit, now, map[string]any{
		"window": w.String(),
		"limit":  limit,
		"count":  count,
	})
	ev.Recipient = t.AdminContact
	s.notifier.Notify(ev)
}
