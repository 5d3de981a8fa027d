package directory_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/directory"
)

const sampleDirectory = `
tenants:
  - id: acme
    name: Acme Corp
    admin_contact: ops@acme.test
    requests_per_minute: 60
    requests_per_day: 0
    monthly_budget: "500.00"
    alert_threshold_pct: 80
    enforcement_mode: throttle
  - id: globex
    name: Globex
    enabled: false
costs:
  - tenant_id: acme
    service: compute
    amount: "40.5"
    currency: EUR
    incurred_at: 2026-03-03T10:00:00Z
  - tenant_id: acme
    service: storage
    amount: "9.5"
    incurred_at: 2026-03-10T10:00:00Z
  - tenant_id: acme
    service: compute
    amount: "1000"
    incurred_at: 2026-02-27T10:00:00Z
`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileDirectory_ParsesTenantsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	writeFile(t, path, sampleDirectory)

	d, err := directory.NewFileDirectory(path, quietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	acme, err := d.GetTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", acme.Name)
	assert.Equal(t, int64(60), acme.Quota.Limit(governance.WindowMinute))
	assert.Equal(t, int64(0), acme.Quota.Limit(governance.WindowDay), "explicit zero is unlimited")
	assert.Equal(t, directory.DefaultRequestsPerMonth, acme.Quota.Limit(governance.WindowMonth))
	assert.True(t, acme.Budget.MonthlyLimit.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 80, acme.Budget.AlertThresholdPct)
	assert.Equal(t, governance.EnforcementThrottle, acme.Budget.EnforcementMode)

	globex, err := d.GetTenant(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, tenant.TenantStatusSuspended, globex.Status)
	assert.Equal(t, directory.DefaultRequestsPerMinute, globex.Quota.RequestsPerMinute)
	assert.Equal(t, tenant.DefaultAlertThresholdPct, globex.Budget.AlertThresholdPct)
	assert.Equal(t, governance.EnforcementBlock, globex.Budget.EnforcementMode)
	assert.False(t, globex.Budget.Enabled())

	_, err = d.GetTenant(ctx, "ghost")
	assert.True(t, errors.Is(err, ports.ErrTenantNotFound))

	all, err := d.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "acme", all[0].ID)
}

func TestFileDirectory_PeriodCosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	writeFile(t, path, sampleDirectory)
	d, err := directory.NewFileDirectory(path, quietLogger())
	require.NoError(t, err)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	report, err := d.PeriodCosts(context.Background(), "acme", start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, report.Total.Equal(decimal.NewFromInt(50)), report.Total.String())
	assert.Equal(t, "EUR", report.Currency)
	require.Len(t, report.Breakdown, 2)
	assert.Equal(t, "compute", report.Breakdown[0].Service)
	assert.True(t, report.Breakdown[0].Cost.Equal(decimal.RequireFromString("40.5")))

	report, err = d.PeriodCosts(context.Background(), "globex", start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, report.Total.IsZero())
}

func TestFileDirectory_RejectsInvalidFile(t *testing.T) {
	cases := map[string]string{
		"bad threshold": "tenants:\n  - id: a\n    alert_threshold_pct: 150\n",
		"bad mode":      "tenants:\n  - id: a\n    enforcement_mode: sometimes\n",
		"duplicate id":  "tenants:\n  - id: a\n  - id: a\n",
		"missing id":    "tenants:\n  - name: nameless\n",
		"bad amount":    "costs:\n  - tenant_id: a\n    amount: lots\n",
		"not yaml":      "tenants: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tenants.yaml")
			writeFile(t, path, content)
			_, err := directory.NewFileDirectory(path, quietLogger())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ports.ErrInvalidConfig))
		})
	}
}

func TestFileDirectory_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	writeFile(t, path, sampleDirectory)
	d, err := directory.NewFileDirectory(path, quietLogger())
	require.NoError(t, err)

	writeFile(t, path, "tenants: [")
	require.Error(t, d.Reload())
	_, err = d.GetTenant(context.Background(), "acme")
	require.NoError(t, err)

	writeFile(t, path, "tenants:\n  - id: initech\n")
	require.NoError(t, d.Reload())
	_, err = d.GetTenant(context.Background(), "acme")
	assert.True(t, errors.Is(err, ports.ErrTenantNotFound))
	_, err = d.GetTenant(context.Background(), "initech")
	assert.NoError(t, err)
}

func TestFileDirectory_WatchPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	writeFile(t, path, sampleDirectory)
	d, err := directory.NewFileDirectory(path, quietLogger())
	require.NoError(t, err)

	reloaded := make(chan error, 8)
	require.NoError(t, d.Watch(20*time.Millisecond, func(err error) { reloaded <- err }))
	t.Cleanup(func() { _ = d.Close() })

	writeFile(t, path, "tenants:\n  - id: acme\n    requests_per_minute: 7\n")
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("directory was not reloaded")
	}
	require.Eventually(t, func() bool {
		acme, err := d.GetTenant(context.Background(), "acme")
		return err == nil && acme.Quota.RequestsPerMinute == 7
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFileDirectory_CloseWithoutWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	writeFile(t, path, sampleDirectory)
	d, err := directory.NewFileDirectory(path, quietLogger())
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}
