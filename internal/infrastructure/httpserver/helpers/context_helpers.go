package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

// TenantHeader carries the tenant identifier of an inbound request.
const TenantHeader = "X-Tenant-ID"

func GetTenantIDFromContext(c echo.Context) (string, error) {
	id, ok := GetTenantIDRaw(c)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid tenant context")
	}
	return id, nil
}

func GetDecisionFromContext(c echo.Context) (governance.Decision, error) {
	d, ok := GetDecisionRaw(c)
	if !ok {
		return governance.Decision{}, echo.NewHTTPError(http.StatusInternalServerError, "governance decision missing")
	}
	return d, nil
}

func GetJWTTokenFromContext(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}

// StatusForDecision maps a decision to the HTTP status a caller should see.
func StatusForDecision(d governance.Decision) int {
	switch d.Action {
	case governance.ActionAllow:
		return http.StatusOK
	case governance.ActionThrottle:
		return http.StatusTooManyRequests
	case governance.ActionDeny:
		if d.Reason == governance.ReasonBudgetExceeded {
			return http.StatusPaymentRequired
		}
		return http.StatusForbidden
	default:
		return http.StatusOK
	}
}
