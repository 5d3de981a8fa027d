package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
	tmocks "github.com/avatarctic/tenant-governance/go/test/mocks"
)

const (
	testSecret = "test-secret"
	testIssuer = "tenant-governance"
)

var now = time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, secret string, deps httpserver.ServerDeps) http.Handler {
	t.Helper()
	if deps.Governor == nil {
		deps.Governor = &tmocks.GovernorMock{}
	}
	if deps.Directory == nil {
		deps.Directory = tmocks.StaticDirectory(&tenant.Tenant{ID: "acme", Status: tenant.TenantStatusActive})
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = &tmocks.RateLimiterMock{}
	}
	if deps.BudgetEnforcer == nil {
		deps.BudgetEnforcer = &tmocks.BudgetEnforcerMock{}
	}
	if deps.CostRefresher == nil {
		deps.CostRefresher = &tmocks.CostRefresherMock{}
	}
	if deps.ReviewLog == nil {
		deps.ReviewLog = &tmocks.ReviewLogMock{}
	}
	deps.Clock = utils.NewManualClock(now)
	s := httpserver.NewServer(&httpserver.ServerConfig{AdminJWTIssuer: testIssuer}, secret, quietLogger(), deps)
	return s.Echo()
}

func adminToken(t *testing.T, role, issuer string, expiresIn time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGovernanceCheck_AllowPassesThrough(t *testing.T) {
	gov := &tmocks.GovernorMock{CheckFn: func(ctx context.Context, tenantID string, at time.Time) governance.Decision {
		assert.Equal(t, now, at)
		return governance.Allow(governance.ReasonBudgetWarning)
	}}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{Governor: gov})

	rec := do(h, http.MethodPost, "/api/v1/governance/check", map[string]string{"X-Tenant-ID": " acme "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "allow", rec.Header().Get("X-Governance-Action"))
	assert.Equal(t, "budget_warning", rec.Header().Get("X-Governance-Reason"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "allow", body["action"])
	assert.Equal(t, "budget_warning", body["reason"])
	assert.Equal(t, []string{"acme"}, gov.TenantIDs)
}

func TestGovernanceCheck_Throttle(t *testing.T) {
	gov := &tmocks.GovernorMock{CheckFn: func(ctx context.Context, tenantID string, at time.Time) governance.Decision {
		d := governance.Throttle(governance.ReasonRateLimitMinute, 30*time.Second)
		d.Degraded = true
		return d
	}}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{Governor: gov})

	rec := do(h, http.MethodGet, "/api/v1/governance/check", map[string]string{"X-Tenant-ID": "acme"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "true", rec.Header().Get("X-Governance-Degraded"))

	var body middleware.RejectionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_minute", body.Reason)
	assert.Equal(t, 30, body.RetryAfterSeconds)
}

func TestGovernanceCheck_DenyStatuses(t *testing.T) {
	cases := []struct {
		reason governance.Reason
		status int
	}{
		{governance.ReasonBudgetExceeded, http.StatusPaymentRequired},
		{governance.ReasonUnknownTenant, http.StatusForbidden},
		{governance.ReasonTenantDisabled, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.reason.String(), func(t *testing.T) {
			gov := &tmocks.GovernorMock{CheckFn: func(ctx context.Context, tenantID string, at time.Time) governance.Decision {
				return governance.Deny(tc.reason)
			}}
			h := newTestServer(t, testSecret, httpserver.ServerDeps{Governor: gov})
			rec := do(h, http.MethodGet, "/api/v1/governance/check", map[string]string{"X-Tenant-ID": "acme"})
			assert.Equal(t, tc.status, rec.Code)
			assert.Empty(t, rec.Header().Get("Retry-After"))
		})
	}
}

func TestGovernanceCheck_MissingTenantHeader(t *testing.T) {
	gov := &tmocks.GovernorMock{CheckFn: func(ctx context.Context, tenantID string, at time.Time) governance.Decision {
		if tenantID == "" {
			return governance.Deny(governance.ReasonUnknownTenant)
		}
		return governance.Allow(governance.ReasonNone)
	}}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{Governor: gov})

	rec := do(h, http.MethodGet, "/api/v1/governance/check", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{""}, gov.TenantIDs)
}

func TestAdmin_RejectsBadTokens(t *testing.T) {
	h := newTestServer(t, testSecret, httpserver.ServerDeps{})

	rec := do(h, http.MethodGet, "/api/v1/admin/tenants", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants", map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants", map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", testIssuer, -time.Minute)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired")

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants", map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", "someone-else", time.Hour)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong issuer")

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants", map[string]string{"Authorization": "Bearer " + adminToken(t, "viewer", testIssuer, time.Hour)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmin_DisabledWithoutSecret(t *testing.T) {
	h := newTestServer(t, "", httpserver.ServerDeps{})
	rec := do(h, http.MethodGet, "/api/v1/admin/tenants", map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", testIssuer, time.Hour)})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdmin_TenantEndpoints(t *testing.T) {
	var resetFor string
	limiter := &tmocks.RateLimiterMock{
		UsageFn: func(ctx context.Context, tn *tenant.Tenant, at time.Time) ([]governance.WindowUsage, error) {
			return []governance.WindowUsage{{Window: governance.WindowMinute, Count: 3, Limit: 10, Remaining: 7, ResetAt: now.Add(time.Minute)}}, nil
		},
		ResetFn: func(ctx context.Context, tenantID string, at time.Time) error {
			resetFor = tenantID
			return nil
		},
	}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{RateLimiter: limiter})
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", testIssuer, time.Hour)}

	rec := do(h, http.MethodGet, "/api/v1/admin/tenants", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants/acme/usage", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var usage struct {
		TenantID string `json:"tenant_id"`
		Windows  []struct {
			Window    string `json:"window"`
			Remaining int64  `json:"remaining"`
		} `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.Equal(t, "acme", usage.TenantID)
	require.Len(t, usage.Windows, 1)
	assert.Equal(t, "minute", usage.Windows[0].Window)
	assert.Equal(t, int64(7), usage.Windows[0].Remaining)

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants/ghost/usage", auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodDelete, "/api/v1/admin/tenants/acme/limits", auth)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "acme", resetFor)

	rec = do(h, http.MethodGet, "/api/v1/admin/tenants/acme/budget", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unbudgeted"`)
}

func TestAdmin_UsageWhenStoreDown(t *testing.T) {
	limiter := &tmocks.RateLimiterMock{UsageFn: func(ctx context.Context, tn *tenant.Tenant, at time.Time) ([]governance.WindowUsage, error) {
		return nil, ports.ErrStoreUnavailable
	}}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{RateLimiter: limiter})
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", testIssuer, time.Hour)}

	rec := do(h, http.MethodGet, "/api/v1/admin/tenants/acme/usage", auth)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdmin_RefreshCosts(t *testing.T) {
	refresher := &tmocks.CostRefresherMock{RefreshFn: func(ctx context.Context, tenantID string) error {
		return errors.New("ledger timeout")
	}}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{CostRefresher: refresher})
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", testIssuer, time.Hour)}

	rec := do(h, http.MethodPost, "/api/v1/admin/tenants/acme/costs/refresh", auth)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAdmin_ListReviews(t *testing.T) {
	reviews := &tmocks.ReviewLogMock{}
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, reviews.Record(context.Background(), governance.NewReviewRecord(id, now, errors.New("boom"))))
	}
	h := newTestServer(t, testSecret, httpserver.ServerDeps{ReviewLog: reviews})
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t, "admin", testIssuer, time.Hour)}

	rec := do(h, http.MethodGet, "/api/v1/admin/reviews?limit=2", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	rec = do(h, http.MethodGet, "/api/v1/admin/reviews?limit=zero", auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth_ReportsDependencies(t *testing.T) {
	h := newTestServer(t, testSecret, httpserver.ServerDeps{HealthCheckers: []ports.HealthChecker{
		&tmocks.HealthCheckerMock{NameValue: "redis"},
	}})
	rec := do(h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"healthy"`)

	h = newTestServer(t, testSecret, httpserver.ServerDeps{HealthCheckers: []ports.HealthChecker{
		&tmocks.HealthCheckerMock{NameValue: "redis", Err: errors.New("down")},
	}})
	rec = do(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}
