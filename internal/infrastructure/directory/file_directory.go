// Package directory provides a YAML file backed tenant directory and cost ledger
// that reloads when the file changes.
package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/cost"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// Defaults applied when a quota or budget field is absent. An explicit 0 quota means unlimited.
const (
	DefaultRequestsPerMinute int64 = 100
	DefaultRequestsPerDay    int64 = 10000
	DefaultRequestsPerMonth  int64 = 100000
)

type fileDocument struct {
	Tenants []fileTenant `yaml:"tenants"`
	Costs   []fileCost   `yaml:"costs"`
}

type fileTenant struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Status            string `yaml:"status"`
	Enabled           *bool  `yaml:"enabled"`
	AdminContact      string `yaml:"admin_contact"`
	RequestsPerMinute *int64 `yaml:"requests_per_minute"`
	RequestsPerDay    *int64 `yaml:"requests_per_day"`
	RequestsPerMonth  *int64 `yaml:"requests_per_month"`
	MonthlyBudget     string `yaml:"monthly_budget"`
	AlertThresholdPct *int   `yaml:"alert_threshold_pct"`
	EnforcementMode   string `yaml:"enforcement_mode"`
}

type fileCost struct {
	TenantID   string    `yaml:"tenant_id"`
	Service    string    `yaml:"service"`
	Amount     string    `yaml:"amount"`
	Currency   string    `yaml:"currency"`
	IncurredAt time.Time `yaml:"incurred_at"`
}

type costLine struct {
	service  string
	amount   decimal.Decimal
	currency string
	// zero means the line counts toward every period
	at time.Time
}

// FileDirectory serves tenants and costs from a YAML file.
type FileDirectory struct {
	path   string
	logger *logrus.Logger

	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
	costs   map[string][]costLine

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileDirectory loads path once. Call Watch to pick up later edits.
func NewFileDirectory(path string, logger *logrus.Logger) (*FileDirectory, error) {
	d := &FileDirectory{path: path, logger: logger}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the file. On error the previous contents stay in effect.
func (d *FileDirectory) Reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("read tenant file %s: %w", d.path, err)
	}
	tenants, costs, err := parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ports.ErrInvalidConfig, d.path, err)
	}
	d.mu.Lock()
	d.tenants = tenants
	d.costs = costs
	d.mu.Unlock()
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{"path": d.path, "tenants": len(tenants)}).Info("tenant directory loaded")
	}
	return nil
}

func parse(data []byte) (map[string]*tenant.Tenant, map[string][]costLine, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	tenants := make(map[string]*tenant.Tenant, len(doc.Tenants))
	for i, ft := range doc.Tenants {
		t, err := ft.toDomain()
		if err != nil {
			return nil, nil, fmt.Errorf("tenants[%d]: %w", i, err)
		}
		if _, dup := tenants[t.ID]; dup {
			return nil, nil, fmt.Errorf("tenants[%d]: duplicate id %q", i, t.ID)
		}
		tenants[t.ID] = t
	}
	costs := make(map[string][]costLine)
	for i, fc := range doc.Costs {
		amount, err := decimal.NewFromString(strings.TrimSpace(fc.Amount))
		if err != nil {
			return nil, nil, fmt.Errorf("costs[%d]: invalid amount %q", i, fc.Amount)
		}
		if fc.TenantID == "" {
			return nil, nil, fmt.Errorf("costs[%d]: tenant_id is required", i)
		}
		costs[fc.TenantID] = append(costs[fc.TenantID], costLine{
			service:  fc.Service,
			amount:   amount,
			currency: fc.Currency,
			at:       fc.IncurredAt,
		})
	}
	return tenants, costs, nil
}

func (ft fileTenant) toDomain() (*tenant.Tenant, error) {
	t := &tenant.Tenant{
		ID:           strings.TrimSpace(ft.ID),
		Name:         ft.Name,
		Status:       tenant.TenantStatusActive,
		AdminContact: ft.AdminContact,
		Quota: tenant.QuotaConfig{
			RequestsPerMinute: intOr(ft.RequestsPerMinute, DefaultRequestsPerMinute),
			RequestsPerDay:    intOr(ft.RequestsPerDay, DefaultRequestsPerDay),
			RequestsPerMonth:  intOr(ft.RequestsPerMonth, DefaultRequestsPerMonth),
		},
		Budget: tenant.BudgetConfig{
			AlertThresholdPct: tenant.DefaultAlertThresholdPct,
			EnforcementMode:   governance.EnforcementBlock,
		},
	}
	if ft.Status != "" {
		t.Status = tenant.TenantStatus(strings.ToLower(ft.Status))
	}
	if ft.Enabled != nil && !*ft.Enabled {
		t.Status = tenant.TenantStatusSuspended
	}
	if ft.MonthlyBudget != "" {
		limit, err := decimal.NewFromString(strings.TrimSpace(ft.MonthlyBudget))
		if err != nil {
			return nil, fmt.Errorf("invalid monthly_budget %q", ft.MonthlyBudget)
		}
		t.Budget.MonthlyLimit = limit
	}
	if ft.AlertThresholdPct != nil {
		t.Budget.AlertThresholdPct = *ft.AlertThresholdPct
	}
	if ft.EnforcementMode != "" {
		mode, err := governance.ParseEnforcementMode(ft.EnforcementMode)
		if err != nil {
			return nil, err
		}
		t.Budget.EnforcementMode = mode
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func intOr(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}

func (d *FileDirectory) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	d.mu.RLock()
	t, ok := d.tenants[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, ports.ErrTenantNotFound)
	}
	return t, nil
}

func (d *FileDirectory) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	d.mu.RLock()
	out := make([]*tenant.Tenant, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, t)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PeriodCosts sums the file's cost lines that fall into [start, end).
func (d *FileDirectory) PeriodCosts(_ context.Context, tenantID string, start, end time.Time) (*cost.Report, error) {
	d.mu.RLock()
	lines := d.costs[tenantID]
	d.mu.RUnlock()

	byService := make(map[string]decimal.Decimal)
	report := &cost.Report{TenantID: tenantID, PeriodStart: start, PeriodEnd: end, Total: decimal.Zero, Currency: cost.DefaultCurrency}
	for _, l := range lines {
		if !l.at.IsZero() && (l.at.Before(start) || !l.at.Before(end)) {
			continue
		}
		if l.currency != "" {
			report.Currency = l.currency
		}
		byService[l.service] = byService[l.service].Add(l.amount)
		report.Total = report.Total.Add(l.amount)
	}
	for svc, amt := range byService {
		report.Breakdown = append(report.Breakdown, cost.ServiceCost{Service: svc, Cost: amt})
	}
	sort.Slice(report.Breakdown, func(i, j int) bool { return report.Breakdown[i].Service < report.Breakdown[j].Service })
	return report, nil
}

// Watch reloads the file after it changes. The parent directory is watched so that
// editors which replace the file on save are handled. onReload may be nil.
func (d *FileDirectory) Watch(debounce time.Duration, onReload func(error)) error {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(d.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", d.path, err)
	}
	d.mu.Lock()
	d.watcher = w
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.watchLoop(w, debounce, onReload)
	return nil
}

func (d *FileDirectory) watchLoop(w *fsnotify.Watcher, debounce time.Duration, onReload func(error)) {
	defer close(d.doneCh)
	target := filepath.Clean(d.path)
	var timer *time.Timer
	reload := func() {
		err := d.Reload()
		if err != nil && d.logger != nil {
			d.logger.WithField("path", d.path).WithError(err).Error("tenant directory reload failed, keeping previous contents")
		}
		if onReload != nil {
			onReload(err)
		}
	}
	for {
		select {
		case <-d.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if d.logger != nil {
				d.logger.WithError(err).Warn("tenant directory watcher error")
			}
		}
	}
}

// Close stops watching. It is safe to call without Watch.
func (d *FileDirectory) Close() error {
	d.mu.Lock()
	w, stop, done := d.watcher, d.stopCh, d.doneCh
	d.watcher = nil
	d.mu.Unlock()
	if w == nil {
		return nil
	}
	close(stop)
	<-done
	return w.Close()
}
