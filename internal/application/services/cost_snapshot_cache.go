package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

// CostSnapshotConfig groups refresh parameters for the cost snapshot cache.
type CostSnapshotConfig struct {
	// Schedule is a cron expression or descriptor such as "@every 5m".
	Schedule         string
	FetchTimeout     time.Duration
	StalenessCeiling time.Duration
	RefreshWorkers   int
}

type snapshotEntry struct {
	snap    cost.Snapshot
	lastErr error
}

// CostSnapshotCache keeps a read-mostly view of tenant spend. The cost ledger is only
// called from the background schedule or from explicit refreshes, never from Get.
type CostSnapshotCache struct {
	ledger   ports.CostLedger
	expr     string
	schedule cron.Schedule
	timeout  time.Duration
	ceiling  time.Duration
	workers  int
	clock    utils.Clock
	metrics  *GovernanceMetrics
	logger   *logrus.Logger

	mu      sync.RWMutex
	entries map[string]*snapshotEntry
	lastRun time.Time

	sf      singleflight.Group
	cron    *cron.Cron
	bgCtx   context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

func NewCostSnapshotCache(ledger ports.CostLedger, cfg *CostSnapshotConfig, clock utils.Clock, metrics *GovernanceMetrics, logger *logrus.Logger) (*CostSnapshotCache, error) {
	expr := "@every 5m"
	timeout := 5 * time.Second
	ceiling := 15 * time.Minute
	workers := 8
	if cfg != nil {
		if cfg.Schedule != "" {
			expr = cfg.Schedule
		}
		if cfg.FetchTimeout > 0 {
			timeout = cfg.FetchTimeout
		}
		if cfg.StalenessCeiling > 0 {
			ceiling = cfg.StalenessCeiling
		}
		if cfg.RefreshWorkers > 0 {
			workers = cfg.RefreshWorkers
		}
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cost refresh schedule %q: %v", ports.ErrInvalidConfig, expr, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CostSnapshotCache{
		ledger:   ledger,
		expr:     expr,
		schedule: sched,
		timeout:  timeout,
		ceiling:  ceiling,
		workers:  workers,
		clock:    utils.ClockOrSystem(clock),
		metrics:  metrics,
		logger:   logger,
		entries:  make(map[string]*snapshotEntry),
		bgCtx:    ctx,
		cancel:   cancel,
	}, nil
}

// Get returns the cached snapshot. A tenant seen for the first time is registered and
// refreshed asynchronously; until then the snapshot is returned with Known=false.
func (c *CostSnapshotCache) Get(tenantID string) cost.Snapshot {
	now := c.clock.Now()
	c.mu.RLock()
	e, ok := c.entries[tenantID]
	var snap cost.Snapshot
	var lastErr error
	if ok {
		snap, lastErr = e.snap, e.lastErr
	}
	c.mu.RUnlock()

	if !ok {
		c.register(tenantID)
		c.refreshAsync(tenantID)
		return cost.Snapshot{TenantID: tenantID, Currency: cost.DefaultCurrency}
	}
	if snap.Known && !now.Before(snap.PeriodEnd) {
		return c.rollOver(tenantID, now)
	}
	snap.Stale = snap.Known && lastErr != nil && now.Sub(snap.AsOf) > c.ceiling
	return snap
}

// Invalidate schedules an immediate background refresh for the tenant.
func (c *CostSnapshotCache) Invalidate(tenantID string) {
	c.register(tenantID)
	c.refreshAsync(tenantID)
}

// NextRefresh returns when the schedule will next run after now.
func (c *CostSnapshotCache) NextRefresh(now time.Time) time.Time {
	c.mu.RLock()
	last := c.lastRun
	c.mu.RUnlock()
	if !last.IsZero() {
		if next := c.schedule.Next(last); next.After(now) {
			return next
		}
	}
	return c.schedule.Next(now)
}

// Refresh fetches spend for one tenant. Concurrent refreshes of the same tenant share one ledger call.
func (c *CostSnapshotCache) Refresh(ctx context.Context, tenantID string) error {
	c.register(tenantID)
	_, err, _ := c.sf.Do(tenantID, func() (interface{}, error) {
		return nil, c.fetch(ctx, tenantID)
	})
	return err
}

// RefreshAll refreshes every registered tenant with bounded concurrency.
func (c *CostSnapshotCache) RefreshAll(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.lastRun = c.clock.Now()
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	var mu sync.Mutex
	var errs []error
	for _, id := range ids {
		g.Go(func() error {
			if err := c.Refresh(gctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// WarmUp registers tenants and refreshes them synchronously.
func (c *CostSnapshotCache) WarmUp(ctx context.Context, tenantIDs []string) error {
	for _, id := range tenantIDs {
		c.register(id)
	}
	return c.RefreshAll(ctx)
}

// Start runs RefreshAll on the configured schedule.
func (c *CostSnapshotCache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return
	}
	c.cron = cron.New(cron.WithLocation(time.UTC))
	c.cron.Schedule(c.schedule, cron.FuncJob(func() {
		if err := c.RefreshAll(c.bgCtx); err != nil && c.logger != nil {
			c.logger.WithError(err).Warn("cost snapshot refresh finished with errors")
		}
	}))
	c.cron.Start()
	if c.logger != nil {
		c.logger.WithField("schedule", c.expr).Info("cost snapshot refresher started")
	}
}

// Stop halts the schedule and waits for running refreshes.
func (c *CostSnapshotCache) Stop() {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()
	c.cancel()
	if cr != nil {
		<-cr.Stop().Done()
	}
	c.pending.Wait()
}

func (c *CostSnapshotCache) register(tenantID string) {
	c.mu.Lock()
	if _, ok := c.entries[tenantID]; !ok {
		c.entries[tenantID] = &snapshotEntry{snap: cost.Snapshot{TenantID: tenantID, Currency: cost.DefaultCurrency}}
	}
	c.mu.Unlock()
}

// rollOver replaces a snapshot from a closed billing period with an unknown one for the
// current period, so only the first caller after the rollover starts a refresh.
func (c *CostSnapshotCache) rollOver(tenantID string, now time.Time) cost.Snapshot {
	start, end := cost.BillingPeriod(now)
	c.mu.Lock()
	e, ok := c.entries[tenantID]
	if !ok || !e.snap.Known || now.Before(e.snap.PeriodEnd) {
		// another caller rolled it over already
		snap := cost.Snapshot{TenantID: tenantID, Currency: cost.DefaultCurrency, PeriodStart: start, PeriodEnd: end}
		if ok {
			snap = e.snap
		}
		c.mu.Unlock()
		return snap
	}
	fresh := cost.Snapshot{TenantID: tenantID, Currency: e.snap.Currency, PeriodStart: start, PeriodEnd: end}
	c.entries[tenantID] = &snapshotEntry{snap: fresh, lastErr: e.lastErr}
	c.mu.Unlock()

	c.refreshAsync(tenantID)
	return fresh
}

func (c *CostSnapshotCache) refreshAsync(tenantID string) {
	if c.bgCtx.Err() != nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		_ = c.Refresh(c.bgCtx, tenantID)
	}()
}

func (c *CostSnapshotCache) fetch(ctx context.Context, tenantID string) error {
	now := c.clock.Now()
	start, end := cost.BillingPeriod(now)
	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report, err := c.ledger.PeriodCosts(fctx, tenantID, start, end)
	if err == nil && report == nil {
		err = errors.New("empty cost report")
	}
	if err != nil {
		if !errors.Is(err, ports.ErrCostLedgerUnavailable) {
			err = fmt.Errorf("%w: %v", ports.ErrCostLedgerUnavailable, err)
		}
		c.mu.Lock()
		if e, ok := c.entries[tenantID]; ok {
			e.lastErr = err
		}
		c.mu.Unlock()
		c.metrics.costRefresh("error")
		if c.logger != nil {
			c.logger.WithField("tenant_id", tenantID).WithError(err).Warn("cost snapshot refresh failed, serving last known snapshot")
		}
		return err
	}

	currency := report.Currency
	if currency == "" {
		currency = cost.DefaultCurrency
	}
	snap := cost.Snapshot{
		TenantID:      tenantID,
		CurrentSpend:  report.Total,
		ForecastSpend: cost.Forecast(report.Total, start, end, now),
		Currency:      currency,
		Breakdown:     report.Breakdown,
		PeriodStart:   start,
		PeriodEnd:     end,
		AsOf:          now,
		Known:         true,
	}
	c.mu.Lock()
	c.entries[tenantID] = &snapshotEntry{snap: snap}
	c.mu.Unlock()
	c.metrics.costRefresh("success")
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "spend": report.Total.String()}).Debug("cost snapshot refreshed")
	}
	return nil
}
