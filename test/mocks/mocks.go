package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// TenantDirectoryMock is a lightweight mock for TenantDirectory
type TenantDirectoryMock struct {
	GetTenantFn   func(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenantsFn func(ctx context.Context) ([]*tenant.Tenant, error)
}

func (m *TenantDirectoryMock) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	if m.GetTenantFn != nil {
		return m.GetTenantFn(ctx, id)
	}
	return nil, fmt.Errorf("tenant %s: %w", id, ports.ErrTenantNotFound)
}
func (m *TenantDirectoryMock) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	if m.ListTenantsFn != nil {
		return m.ListTenantsFn(ctx)
	}
	return nil, nil
}

// StaticDirectory serves a fixed set of tenants keyed by id.
func StaticDirectory(tenants ...*tenant.Tenant) *TenantDirectoryMock {
	byID := make(map[string]*tenant.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}
	return &TenantDirectoryMock{
		GetTenantFn: func(ctx context.Context, id string) (*tenant.Tenant, error) {
			if t, ok := byID[id]; ok {
				return t, nil
			}
			return nil, fmt.Errorf("tenant %s: %w", id, ports.ErrTenantNotFound)
		},
		ListTenantsFn: func(ctx context.Context) ([]*tenant.Tenant, error) {
			return tenants, nil
		},
	}
}

// RateLimiterMock is a lightweight mock for RateLimiter
type RateLimiterMock struct {
	CheckFn func(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict
	UsageFn func(ctx context.Context, t *tenant.Tenant, now time.Time) ([]governance.WindowUsage, error)
	ResetFn func(ctx context.Context, tenantID string, now time.Time) error

	mu    sync.Mutex
	Calls int
}

func (m *RateLimiterMock) Check(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.CheckFn != nil {
		return m.CheckFn(ctx, t, now)
	}
	return governance.AllowVerdict(governance.ReasonNone)
}
func (m *RateLimiterMock) Usage(ctx context.Context, t *tenant.Tenant, now time.Time) ([]governance.WindowUsage, error) {
	if m.UsageFn != nil {
		return m.UsageFn(ctx, t, now)
	}
	return nil, nil
}
func (m *RateLimiterMock) Reset(ctx context.Context, tenantID string, now time.Time) error {
	if m.ResetFn != nil {
		return m.ResetFn(ctx, tenantID, now)
	}
	return nil
}

// BudgetEnforcerMock is a lightweight mock for BudgetEnforcer
type BudgetEnforcerMock struct {
	EvaluateFn func(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict
	StatusFn   func(ctx context.Context, t *tenant.Tenant, now time.Time) cost.BudgetStatus

	mu    sync.Mutex
	Calls int
}

func (m *BudgetEnforcerMock) Evaluate(ctx context.Context, t *tenant.Tenant, now time.Time) governance.Verdict {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.EvaluateFn != nil {
		return m.EvaluateFn(ctx, t, now)
	}
	return governance.AllowVerdict(governance.ReasonNone)
}
func (m *BudgetEnforcerMock) Status(ctx context.Context, t *tenant.Tenant, now time.Time) cost.BudgetStatus {
	if m.StatusFn != nil {
		return m.StatusFn(ctx, t, now)
	}
	return cost.BudgetStatus{TenantID: t.ID, Status: cost.BudgetHealthUnbudgeted}
}

// CostSnapshotProviderMock serves snapshots from a map.
type CostSnapshotProviderMock struct {
	mu            sync.Mutex
	Snapshots     map[string]cost.Snapshot
	Invalidated   []string
	NextRefreshFn func(now time.Time) time.Time
}

func (m *CostSnapshotProviderMock) Set(s cost.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Snapshots == nil {
		m.Snapshots = make(map[string]cost.Snapshot)
	}
	m.Snapshots[s.TenantID] = s
}
func (m *CostSnapshotProviderMock) Get(tenantID string) cost.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Snapshots[tenantID]; ok {
		return s
	}
	return cost.Snapshot{TenantID: tenantID, Currency: cost.DefaultCurrency}
}
func (m *CostSnapshotProviderMock) Invalidate(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, tenantID)
}
func (m *CostSnapshotProviderMock) NextRefresh(now time.Time) time.Time {
	if m.NextRefreshFn != nil {
		return m.NextRefreshFn(now)
	}
	return now.Add(5 * time.Minute)
}

// CostLedgerMock is a lightweight mock for CostLedger
type CostLedgerMock struct {
	PeriodCostsFn func(ctx context.Context, tenantID string, start, end time.Time) (*cost.Report, error)

	mu    sync.Mutex
	Calls int
}

func (m *CostLedgerMock) PeriodCosts(ctx context.Context, tenantID string, start, end time.Time) (*cost.Report, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.PeriodCostsFn != nil {
		return m.PeriodCostsFn(ctx, tenantID, start, end)
	}
	return &cost.Report{TenantID: tenantID, PeriodStart: start, PeriodEnd: end, Currency: cost.DefaultCurrency}, nil
}
func (m *CostLedgerMock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// NotificationSinkMock records delivered events.
type NotificationSinkMock struct {
	SendFn func(ctx context.Context, ev *notification.Event) error

	mu     sync.Mutex
	Events []*notification.Event
}

func (m *NotificationSinkMock) Send(ctx context.Context, ev *notification.Event) error {
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
	if m.SendFn != nil {
		return m.SendFn(ctx, ev)
	}
	return nil
}
func (m *NotificationSinkMock) Sent() []*notification.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notification.Event(nil), m.Events...)
}

// RecordingNotifier collects events synchronously.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []*notification.Event
}

func (n *RecordingNotifier) Notify(ev *notification.Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}
func (n *RecordingNotifier) Events() []*notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*notification.Event(nil), n.events...)
}
func (n *RecordingNotifier) Count(kind notification.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Kind == kind {
			c++
		}
	}
	return c
}

// ReviewLogMock records review entries in memory.
type ReviewLogMock struct {
	RecordFn func(ctx context.Context, rec governance.ReviewRecord) error

	mu      sync.Mutex
	Records []governance.ReviewRecord
}

func (m *ReviewLogMock) Record(ctx context.Context, rec governance.ReviewRecord) error {
	if m.RecordFn != nil {
		if err := m.RecordFn(ctx, rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Records = append(m.Records, rec)
	m.mu.Unlock()
	return nil
}
func (m *ReviewLogMock) List(ctx context.Context, limit int) ([]governance.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]governance.ReviewRecord(nil), m.Records...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (m *ReviewLogMock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}

// ErrStoreDown is returned by FailingCounterStore.
var ErrStoreDown = errors.New("connection refused")

// FailingCounterStore fails every call, optionally after a delay.
type FailingCounterStore struct {
	Delay time.Duration

	mu    sync.Mutex
	Calls int
}

func (s *FailingCounterStore) fail(ctx context.Context) error {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ErrStoreDown
}
func (s *FailingCounterStore) Increment(ctx context.Context, key string, expireIn time.Duration) (int64, time.Duration, error) {
	return 0, 0, s.fail(ctx)
}
func (s *FailingCounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, s.fail(ctx)
}
func (s *FailingCounterStore) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	return false, s.fail(ctx)
}
func (s *FailingCounterStore) Delete(ctx context.Context, keys ...string) error {
	return s.fail(ctx)
}
func (s *FailingCounterStore) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

// GovernorMock is a lightweight mock for Governor
type GovernorMock struct {
	CheckFn func(ctx context.Context, tenantID string, now time.Time) governance.Decision

	mu        sync.Mutex
	TenantIDs []string
}

func (m *GovernorMock) Check(ctx context.Context, tenantID string, now time.Time) governance.Decision {
	m.mu.Lock()
	m.TenantIDs = append(m.TenantIDs, tenantID)
	m.mu.Unlock()
	if m.CheckFn != nil {
		return m.CheckFn(ctx, tenantID, now)
	}
	return governance.Allow(governance.ReasonNone)
}

// CostRefresherMock is a lightweight mock for CostRefresher
type CostRefresherMock struct {
	RefreshFn func(ctx context.Context, tenantID string) error
}

func (m *CostRefresherMock) Refresh(ctx context.Context, tenantID string) error {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, tenantID)
	}
	return nil
}

// HealthCheckerMock reports a fixed result.
type HealthCheckerMock struct {
	NameValue string
	Err       error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error { return m.Err }
