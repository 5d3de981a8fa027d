// Package memory provides single-instance implementations of the shared store ports.
// They are only correct when one engine instance serves all traffic.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

const sweepEvery = time.Minute

type item struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// CounterStore implements ports.CounterStore with a locked map.
type CounterStore struct {
	mu        sync.Mutex
	items     map[string]item
	clock     utils.Clock
	lastSweep time.Time
}

func NewCounterStore(clock utils.Clock) *CounterStore {
	clock = utils.ClockOrSystem(clock)
	return &CounterStore{items: make(map[string]item), clock: clock, lastSweep: clock.Now()}
}

func (s *CounterStore) Increment(_ context.Context, key string, expireIn time.Duration) (int64, time.Duration, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

	it, ok := s.items[key]
	if ok && it.expired(now) {
		ok = false
	}
	var count int64
	if ok {
		n, err := strconv.ParseInt(it.value, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("increment %s: value is not an integer", key)
		}
		count = n
	} else {
		it = item{}
	}
	count++
	it.value = strconv.FormatInt(count, 10)
	if count == 1 || it.expiresAt.IsZero() {
		it.expiresAt = now.Add(expireIn)
	}
	s.items[key] = it
	return count, it.expiresAt.Sub(now), nil
}

func (s *CounterStore) Get(_ context.Context, key string) (string, bool, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok || it.expired(now) {
		return "", false, nil
	}
	return it.value, true, nil
}

func (s *CounterStore) CompareAndSwap(_ context.Context, key, prev, next string) (bool, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := ""
	if it, ok := s.items[key]; ok && !it.expired(now) {
		cur = it.value
	}
	if cur != prev {
		return false, nil
	}
	s.items[key] = item{value: next}
	return true, nil
}

func (s *CounterStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of live keys.
func (s *CounterStore) Len() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

func (s *CounterStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < sweepEvery {
		return
	}
	for k, it := range s.items {
		if it.expired(now) {
			delete(s.items, k)
		}
	}
	s.lastSweep = now
}
