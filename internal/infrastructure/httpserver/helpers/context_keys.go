package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

type ctxKey string

const (
	keyTenantID     ctxKey = "tenant_id"
	keyDecision     ctxKey = "governance_decision"
	keyAdminSubject ctxKey = "admin_subject"
)

func SetTenantID(c echo.Context, id string) { c.Set(string(keyTenantID), id) }
func GetTenantIDRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyTenantID))
	id, ok := v.(string)
	return id, ok
}

func SetDecision(c echo.Context, d governance.Decision) { c.Set(string(keyDecision), d) }
func GetDecisionRaw(c echo.Context) (governance.Decision, bool) {
	v := c.Get(string(keyDecision))
	d, ok := v.(governance.Decision)
	return d, ok
}

func SetAdminSubject(c echo.Context, sub string) { c.Set(string(keyAdminSubject), sub) }
func GetAdminSubjectRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyAdminSubject))
	s, ok := v.(string)
	return s, ok
}
