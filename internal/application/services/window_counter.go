package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// WindowCounterConfig bounds every counter store call.
type WindowCounterConfig struct {
	Timeout time.Duration
	Breaker CircuitOptions
}

// WindowCounter guards a CounterStore with a per-call timeout and a circuit breaker.
// Every failure, including a timeout or an open breaker, is reported as ports.ErrStoreUnavailable.
type WindowCounter struct {
	store   ports.CounterStore
	timeout time.Duration
	breaker *CircuitBreaker
	metrics *GovernanceMetrics
	logger  *logrus.Logger
}

func NewWindowCounter(store ports.CounterStore, cfg *WindowCounterConfig, metrics *GovernanceMetrics, logger *logrus.Logger) *WindowCounter {
	timeout := 50 * time.Millisecond
	var bo CircuitOptions
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		bo = cfg.Breaker
	}
	wc := &WindowCounter{store: store, timeout: timeout, metrics: metrics, logger: logger}
	userHook := bo.OnStateChange
	bo.OnStateChange = func(from, to CircuitState) {
		wc.onBreakerChange(from, to)
		if userHook != nil {
			userHook(from, to)
		}
	}
	wc.breaker = NewCircuitBreaker(bo)
	return wc
}

func (wc *WindowCounter) Breaker() *CircuitBreaker { return wc.breaker }

// Increment adds one to key. expireIn is applied only when the key is new.
func (wc *WindowCounter) Increment(ctx context.Context, key string, expireIn time.Duration) (int64, time.Duration, error) {
	var (
		count int64
		ttl   time.Duration
	)
	err := wc.call(ctx, "increment", func(ctx context.Context) error {
		var err error
		count, ttl, err = wc.store.Increment(ctx, key, expireIn)
		return err
	})
	return count, ttl, err
}

func (wc *WindowCounter) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := wc.call(ctx, "get", func(ctx context.Context) error {
		var err error
		val, ok, err = wc.store.Get(ctx, key)
		return err
	})
	return val, ok, err
}

func (wc *WindowCounter) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	var swapped bool
	err := wc.call(ctx, "cas", func(ctx context.Context) error {
		var err error
		swapped, err = wc.store.CompareAndSwap(ctx, key, prev, next)
		return err
	})
	return swapped, err
}

func (wc *WindowCounter) Delete(ctx context.Context, keys ...string) error {
	return wc.call(ctx, "delete", func(ctx context.Context) error {
		return wc.store.Delete(ctx, keys...)
	})
}

func (wc *WindowCounter) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if !wc.breaker.Allow() {
		wc.metrics.storeFailure(op)
		return fmt.Errorf("%w: circuit open", ports.ErrStoreUnavailable)
	}
	cctx, cancel := context.WithTimeout(ctx, wc.timeout)
	defer cancel()
	err := fn(cctx)
	if err == nil {
		wc.breaker.OnSuccess()
		return nil
	}
	wc.breaker.OnFailure()
	wc.metrics.storeFailure(op)
	if errors.Is(err, ports.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrStoreUnavailable, op, err)
}

func (wc *WindowCounter) onBreakerChange(from, to CircuitState) {
	wc.metrics.breakerState(to)
	if wc.logger == nil {
		return
	}
	entry := wc.logger.WithFields(logrus.Fields{"from": from.String(), "to": to.String()})
	switch to {
	case CircuitOpen:
		entry.Error("counter store breaker opened: rate limits are not enforced")
	case CircuitHalfOpen:
		entry.Warn("counter store breaker probing")
	case CircuitClosed:
		entry.Info("counter store breaker closed: rate limits enforced again")
	}
}
