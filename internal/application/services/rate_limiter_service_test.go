package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/tenant-governance/go/internal/application/services"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/memory"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
	tmocks "github.com/avatarctic/tenant-governance/go/test/mocks"
)

type limiterFixture struct {
	clock    *utils.ManualClock
	store    *memory.CounterStore
	notifier *tmocks.RecordingNotifier
	limiter  *impl.RateLimiterService
}

func newLimiterFixture() *limiterFixture {
	clock := utils.NewManualClock(baseTime)
	store := memory.NewCounterStore(clock)
	notifier := &tmocks.RecordingNotifier{}
	counter := impl.NewWindowCounter(store, nil, nil, quietLogger())
	return &limiterFixture{
		clock:    clock,
		store:    store,
		notifier: notifier,
		limiter:  impl.NewRateLimiterService(counter, notifier, &impl.RateLimiterConfig{KeyPrefix: "test"}, quietLogger()),
	}
}

func TestCounterKey_Format(t *testing.T) {
	start, _ := governance.WindowMinute.Bounds(baseTime)
	assert.Equal(t, "gov:acme:minute:1773662400", impl.CounterKey("gov", "acme", governance.WindowMinute, start))
}

func TestRateLimiter_MinuteWindowDeniesThirdRequest(t *testing.T) {
	f := newLimiterFixture()
	ctx := context.Background()
	tn := newTenant("acme", 2, 0, 0)

	v := f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ActionAllow, v.Action)

	f.clock.Advance(time.Second)
	v = f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ActionAllow, v.Action)

	f.clock.Advance(time.Second)
	v = f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ActionDeny, v.Action)
	assert.Equal(t, governance.ReasonRateLimitMinute, v.Reason)
	assert.Equal(t, 58*time.Second, v.RetryAfter)
	assert.False(t, v.Degraded)

	// the alert fires once per bucket
	f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, 1, f.notifier.Count(notification.KindRateLimit))
	ev := f.notifier.Events()[0]
	assert.Equal(t, "acme", ev.TenantID)
	assert.Equal(t, "acme@example.com", ev.Recipient)
	assert.Equal(t, "minute", ev.Detail["window"])

	f.clock.Set(baseTime.Add(time.Minute))
	v = f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ActionAllow, v.Action)
}

func TestRateLimiter_DayWindow(t *testing.T) {
	f := newLimiterFixture()
	ctx := context.Background()
	tn := newTenant("acme", 0, 1, 0)

	assert.Equal(t, governance.ActionAllow, f.limiter.Check(ctx, tn, f.clock.Now()).Action)
	v := f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ActionDeny, v.Action)
	assert.Equal(t, governance.ReasonRateLimitDay, v.Reason)
	assert.Equal(t, 12*time.Hour, v.RetryAfter)
}

func TestRateLimiter_TightestWindowWinsTieBreak(t *testing.T) {
	f := newLimiterFixture()
	ctx := context.Background()
	tn := newTenant("acme", 1, 1, 1)

	f.limiter.Check(ctx, tn, f.clock.Now())
	v := f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ReasonRateLimitMinute, v.Reason)
	// each violated window alerts once
	assert.Equal(t, 3, f.notifier.Count(notification.KindRateLimit))
}

func TestRateLimiter_DeniedRequestsStillCount(t *testing.T) {
	f := newLimiterFixture()
	ctx := context.Background()
	tn := newTenant("acme", 1, 3, 0)

	assert.Equal(t, governance.ActionAllow, f.limiter.Check(ctx, tn, f.clock.Now()).Action)
	assert.Equal(t, governance.ReasonRateLimitMinute, f.limiter.Check(ctx, tn, f.clock.Now()).Reason)
	assert.Equal(t, governance.ReasonRateLimitMinute, f.limiter.Check(ctx, tn, f.clock.Now()).Reason)

	f.clock.Advance(time.Minute)
	v := f.limiter.Check(ctx, tn, f.clock.Now())
	assert.Equal(t, governance.ActionDeny, v.Action)
	assert.Equal(t, governance.ReasonRateLimitDay, v.Reason)
}

func TestRateLimiter_UnlimitedWindowsAreSkipped(t *testing.T) {
	f := newLimiterFixture()
	tn := newTenant("acme", 0, 0, 0)
	for i := 0; i < 20; i++ {
		require.Equal(t, governance.ActionAllow, f.limiter.Check(context.Background(), tn, f.clock.Now()).Action)
	}
	assert.Equal(t, 0, f.store.Len())
}

func TestRateLimiter_ConcurrentChecksNeverExceedLimit(t *testing.T) {
	f := newLimiterFixture()
	tn := newTenant("acme", 10, 0, 0)
	now := f.clock.Now()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.limiter.Check(context.Background(), tn, now).Action == governance.ActionAllow {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), admitted.Load())
	assert.Equal(t, 1, f.notifier.Count(notification.KindRateLimit))
}

func TestRateLimiter_UsageAndReset(t *testing.T) {
	f := newLimiterFixture()
	ctx := context.Background()
	tn := newTenant("acme", 5, 100, 0)

	for i := 0; i < 3; i++ {
		f.limiter.Check(ctx, tn, f.clock.Now())
	}
	usage, err := f.limiter.Usage(ctx, tn, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, governance.WindowMinute, usage[0].Window)
	assert.Equal(t, int64(3), usage[0].Count)
	assert.Equal(t, int64(2), usage[0].Remaining)
	assert.Equal(t, baseTime.Add(time.Minute), usage[0].ResetAt)
	assert.Equal(t, governance.WindowDay, usage[1].Window)
	assert.Equal(t, int64(97), usage[1].Remaining)

	require.NoError(t, f.limiter.Reset(ctx, tn.ID, f.clock.Now()))
	usage, err = f.limiter.Usage(ctx, tn, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage[0].Count)
	assert.Equal(t, int64(0), usage[1].Count)
}

func TestRateLimiter_FailsOpenWhenStoreDown(t *testing.T) {
	store := &tmocks.FailingCounterStore{}
	counter := impl.NewWindowCounter(store, nil, nil, quietLogger())
	limiter := impl.NewRateLimiterService(counter, nil, nil, quietLogger())

	v := limiter.Check(context.Background(), newTenant("acme", 1, 1, 1), baseTime)
	assert.Equal(t, governance.ActionAllow, v.Action)
	assert.True(t, v.Degraded)

	_, err := limiter.Usage(context.Background(), newTenant("acme", 1, 1, 1), baseTime)
	assert.Error(t, err)
}
