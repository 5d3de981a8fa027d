package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/helpers"
)

func (s *Server) lookupTenant(c echo.Context) (*tenant.Tenant, error) {
	id := c.Param("id")
	t, err := s.directory.GetTenant(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrTenantNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "tenant not found")
		}
		s.logger.WithFields(logrus.Fields{"tenant_id": id, "error": err.Error()}).Error("tenant lookup failed")
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "tenant directory unavailable")
	}
	return t, nil
}

func (s *Server) listTenants(c echo.Context) error {
	tenants, err := s.directory.ListTenants(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("list tenants failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "tenant directory unavailable")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tenants": tenants, "total": len(tenants)})
}

func (s *Server) getTenantUsage(c echo.Context) error {
	t, err := s.lookupTenant(c)
	if err != nil {
		return err
	}
	usage, err := s.limiter.Usage(c.Request().Context(), t, s.clock.Now())
	if err != nil {
		if errors.Is(err, ports.ErrStoreUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "counter store unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tenant_id": t.ID, "windows": usage})
}

func (s *Server) resetTenantLimits(c echo.Context) error {
	t, err := s.lookupTenant(c)
	if err != nil {
		return err
	}
	if err := s.limiter.Reset(c.Request().Context(), t.ID, s.clock.Now()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "counter store unavailable")
	}
	admin, _ := helpers.GetAdminSubjectRaw(c)
	s.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "admin": admin}).Info("tenant rate limits reset by admin")
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getTenantBudget(c echo.Context) error {
	t, err := s.lookupTenant(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.budget.Status(c.Request().Context(), t, s.clock.Now()))
}

func (s *Server) refreshTenantCosts(c echo.Context) error {
	t, err := s.lookupTenant(c)
	if err != nil {
		return err
	}
	if err := s.costs.Refresh(c.Request().Context(), t.ID); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "cost ledger unavailable")
	}
	return c.JSON(http.StatusOK, s.budget.Status(c.Request().Context(), t, s.clock.Now()))
}

func (s *Server) listReviews(c echo.Context) error {
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	records, err := s.reviews.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "review log unavailable")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": records, "total": len(records)})
}
