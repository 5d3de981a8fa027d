package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Admin      *AdminMiddleware
	Tenant     *TenantMiddleware
	Logging    *LoggingMiddleware
	Governance *GovernanceMiddleware
	Metrics    *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	governor ports.Governor,
	clock utils.Clock,
	logger *logrus.Logger,
	jwtSecret string,
	jwtIssuer string,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		Admin:      NewAdminMiddleware(jwtSecret, jwtIssuer, logger),
		Tenant:     NewTenantMiddleware(logger),
		Logging:    NewLoggingMiddleware(logger),
		Governance: NewGovernanceMiddleware(governor, clock, logger),
		Metrics:    NewMetricsMiddleware(requestsTotal, requestDuration),
	}
}
