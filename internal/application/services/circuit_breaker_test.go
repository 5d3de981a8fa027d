package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/tenant-governance/go/internal/application/services"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
	tmocks "github.com/avatarctic/tenant-governance/go/test/mocks"
)

func TestCircuitBreaker_Transitions(t *testing.T) {
	clock := utils.NewManualClock(baseTime)
	var transitions []string
	cb := impl.NewCircuitBreaker(impl.CircuitOptions{
		FailureThreshold: 3,
		OpenDuration:     5 * time.Second,
		Clock:            clock,
		OnStateChange: func(from, to impl.CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		require.True(t, cb.Allow())
		cb.OnFailure()
	}
	assert.Equal(t, impl.CircuitClosed, cb.State())

	require.True(t, cb.Allow())
	cb.OnFailure()
	assert.Equal(t, impl.CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	clock.Advance(5 * time.Second)
	assert.True(t, cb.Allow(), "first probe after open duration")
	assert.Equal(t, impl.CircuitHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one probe in flight")

	cb.OnFailure()
	assert.Equal(t, impl.CircuitOpen, cb.State())

	clock.Advance(5 * time.Second)
	require.True(t, cb.Allow())
	cb.OnSuccess()
	assert.Equal(t, impl.CircuitClosed, cb.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half_open",
		"half_open->open",
		"open->half_open",
		"half_open->closed",
	}, transitions)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := impl.NewCircuitBreaker(impl.CircuitOptions{FailureThreshold: 2})
	cb.OnFailure()
	cb.OnSuccess()
	cb.OnFailure()
	assert.Equal(t, impl.CircuitClosed, cb.State())
	cb.OnFailure()
	assert.Equal(t, impl.CircuitOpen, cb.State())
}

func TestWindowCounter_OpensBreakerAndStopsCallingStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := impl.NewGovernanceMetrics(reg)
	store := &tmocks.FailingCounterStore{}
	clock := utils.NewManualClock(baseTime)
	wc := impl.NewWindowCounter(store, &impl.WindowCounterConfig{
		Breaker: impl.CircuitOptions{FailureThreshold: 2, OpenDuration: time.Second, Clock: clock},
	}, metrics, quietLogger())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, _, err := wc.Increment(ctx, "k", time.Minute)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrStoreUnavailable))
	}
	assert.Equal(t, 2, store.CallCount())
	assert.Equal(t, impl.CircuitOpen, wc.Breaker().State())
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.StoreFailures.WithLabelValues("increment")))
	assert.Equal(t, float64(impl.CircuitOpen), testutil.ToFloat64(metrics.BreakerState))

	clock.Advance(time.Second)
	_, _, err := wc.Increment(ctx, "k", time.Minute)
	require.Error(t, err)
	assert.Equal(t, 3, store.CallCount(), "half-open probe reaches the store")
}

func TestWindowCounter_TimesOutSlowStore(t *testing.T) {
	store := &tmocks.FailingCounterStore{Delay: 2 * time.Second}
	wc := impl.NewWindowCounter(store, &impl.WindowCounterConfig{Timeout: 20 * time.Millisecond}, nil, quietLogger())

	started := time.Now()
	_, _, err := wc.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrStoreUnavailable))
	assert.Less(t, time.Since(started), time.Second)
}
