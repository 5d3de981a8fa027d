package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	customMiddleware "github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AdminJWTIssuer string
}

type ServerDeps struct {
	Governor       ports.Governor
	Directory      ports.TenantDirectory
	RateLimiter    ports.RateLimiter
	BudgetEnforcer ports.BudgetEnforcer
	CostRefresher  ports.CostRefresher
	ReviewLog      ports.ReviewLog
	Clock          utils.Clock
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	directory      ports.TenantDirectory
	limiter        ports.RateLimiter
	budget         ports.BudgetEnforcer
	costs          ports.CostRefresher
	reviews        ports.ReviewLog
	clock          utils.Clock
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, jwtSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	clock := utils.ClockOrSystem(deps.Clock)

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		directory:      deps.Directory,
		limiter:        deps.RateLimiter,
		budget:         deps.BudgetEnforcer,
		costs:          deps.CostRefresher,
		reviews:        deps.ReviewLog,
		clock:          clock,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.Governor,
			clock,
			logger,
			jwtSecret,
			serverConfig.AdminJWTIssuer,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
