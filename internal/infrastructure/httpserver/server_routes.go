package httpserver

import "net/http"

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	governed := api.Group("/governance", s.middleware.Tenant.ResolveTenant(), s.middleware.Governance.Handler())
	governed.Match([]string{http.MethodGet, http.MethodPost}, "/check", s.checkDecision)

	admin := api.Group("/admin", s.middleware.Admin.RequireAdmin())
	admin.GET("/tenants", s.listTenants)
	admin.GET("/tenants/:id/usage", s.getTenantUsage)
	admin.DELETE("/tenants/:id/limits", s.resetTenantLimits)
	admin.GET("/tenants/:id/budget", s.getTenantBudget)
	admin.POST("/tenants/:id/costs/refresh", s.refreshTenantCosts)
	admin.GET("/reviews", s.listReviews)
}
