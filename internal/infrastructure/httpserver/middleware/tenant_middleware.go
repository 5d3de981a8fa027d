package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/helpers"
)

type TenantMiddleware struct {
	logger *logrus.Logger
}

func NewTenantMiddleware(logger *logrus.Logger) *TenantMiddleware {
	return &TenantMiddleware{logger: logger}
}

// ResolveTenant copies the tenant id header into the request context. A missing header
// leaves the context empty and the request is later denied as an unknown tenant.
func (t *TenantMiddleware) ResolveTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := strings.TrimSpace(c.Request().Header.Get(helpers.TenantHeader)); id != "" {
				helpers.SetTenantID(c, id)
			}
			return next(c)
		}
	}
}
