package services

import (
	"sync/atomic"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

// CircuitState represents breaker state.
type CircuitState int32

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitOptions configures breaker thresholds.
type CircuitOptions struct {
	FailureThreshold int64
	OpenDuration     time.Duration
	HalfOpenMaxCalls int64
	Clock            utils.Clock
	// OnStateChange is invoked once per transition, from the goroutine that caused it.
	OnStateChange func(from, to CircuitState)
}

// CircuitBreaker counts consecutive failures and short-circuits calls while open.
type CircuitBreaker struct {
	state            atomic.Int32
	openUntil        atomic.Int64
	failures         atomic.Int64
	halfOpenInFlight atomic.Int64
	opts             CircuitOptions
}

func NewCircuitBreaker(opts CircuitOptions) *CircuitBreaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenDuration <= 0 {
		opts.OpenDuration = 5 * time.Second
	}
	if opts.HalfOpenMaxCalls <= 0 {
		opts.HalfOpenMaxCalls = 1
	}
	opts.Clock = utils.ClockOrSystem(opts.Clock)
	cb := &CircuitBreaker{opts: opts}
	cb.state.Store(int32(CircuitClosed))
	return cb
}

func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	return CircuitState(cb.state.Load())
}

// Allow reports whether the call should proceed.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.opts.Clock.Now().UnixNano() < cb.openUntil.Load() {
			return false
		}
		if cb.transition(CircuitOpen, CircuitHalfOpen) {
			cb.halfOpenInFlight.Store(0)
		}
		return cb.admitProbe()
	case CircuitHalfOpen:
		return cb.admitProbe()
	default:
		return true
	}
}

func (cb *CircuitBreaker) admitProbe() bool {
	if cb.halfOpenInFlight.Add(1) <= cb.opts.HalfOpenMaxCalls {
		return true
	}
	cb.halfOpenInFlight.Add(-1)
	return false
}

// OnSuccess records a successful call.
func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitHalfOpen:
		cb.halfOpenInFlight.Add(-1)
		cb.failures.Store(0)
		cb.transition(CircuitHalfOpen, CircuitClosed)
	case CircuitClosed:
		cb.failures.Store(0)
	}
}

// OnFailure records a failure and opens the breaker once the threshold is reached.
func (cb *CircuitBreaker) OnFailure() {
	if cb == nil {
		return
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitHalfOpen:
		cb.halfOpenInFlight.Add(-1)
		cb.open(CircuitHalfOpen)
	case CircuitClosed:
		if cb.failures.Add(1) >= cb.opts.FailureThreshold {
			cb.open(CircuitClosed)
		}
	}
}

func (cb *CircuitBreaker) open(from CircuitState) {
	cb.openUntil.Store(cb.opts.Clock.Now().Add(cb.opts.OpenDuration).UnixNano())
	cb.transition(from, CircuitOpen)
}

func (cb *CircuitBreaker) transition(from, to CircuitState) bool {
	if !cb.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if cb.opts.OnStateChange != nil {
		cb.opts.OnStateChange(from, to)
	}
	return true
}
