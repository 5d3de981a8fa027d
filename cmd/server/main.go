package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/tenant-governance/go/configs"
	"github.com/avatarctic/tenant-governance/go/internal/application/services"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/db"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/directory"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/email"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/health"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/memory"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/notification"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/redis"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/repositories"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting tenant governance service...")

	clock := utils.SystemClock{}
	metrics := services.NewGovernanceMetrics(prometheus.DefaultRegisterer)
	var healthCheckers []ports.HealthChecker

	var database *db.Database
	if cfg.NeedsDatabase() {
		database, err = db.NewDatabase(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		logger.Info("Connected to database successfully")

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
				logger.Warn("Failed to run migrations:", err)
			}
		}
		healthCheckers = append(healthCheckers, health.NewDBHealthChecker(database))
	}

	// Shared store: counters, alert state, tenant cache and review log.
	var (
		counterStore ports.CounterStore
		cache        ports.Cache
		reviewLog    ports.ReviewLog
		redisClient  goredis.UniversalClient
	)
	switch cfg.Governance.CounterBackend {
	case config.BackendRedis:
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")

		counterStore = redis.NewCounterStore(redisClient)
		cache = redis.NewRedisCache(redisClient, cfg.Governance.KeyPrefix+":cache")
		reviewLog = redis.NewReviewLog(redisClient, cfg.Governance.KeyPrefix+":reviews", int64(cfg.Governance.ReviewLogSize))
		healthCheckers = append(healthCheckers, health.NewRedisHealthChecker(redisClient))
	default:
		logger.Warn("Using in-memory counter store: limits are enforced per instance only")
		counterStore = memory.NewCounterStore(clock)
		cache = memory.NewCache(clock)
		reviewLog = memory.NewReviewLog(cfg.Governance.ReviewLogSize)
	}

	var (
		tenantDirectory ports.TenantDirectory
		costLedger      ports.CostLedger
		fileDirectory   *directory.FileDirectory
	)
	if cfg.Directory.Backend == config.BackendFile {
		fileDirectory, err = directory.NewFileDirectory(cfg.Directory.FilePath, logger)
		if err != nil {
			logger.Fatal("Failed to load tenant directory file:", err)
		}
		if err := fileDirectory.Watch(cfg.Directory.WatchDebounce, nil); err != nil {
			logger.Warn("Tenant directory hot reload disabled:", err)
		}
		defer fileDirectory.Close()
		tenantDirectory = fileDirectory
	} else {
		baseTenantRepo := repositories.NewTenantRepository(database, logger)
		tenantDirectory = repositories.NewCachingTenantDirectory(baseTenantRepo, cache, cfg.Directory.CacheTTL, cfg.Directory.NegativeCacheTTL)
	}
	if cfg.CostLedger.Backend == config.BackendFile {
		costLedger = fileDirectory
	} else {
		costLedger = repositories.NewCostLedgerRepository(database)
	}
	healthCheckers = append(healthCheckers, health.NewDirectoryHealthChecker(tenantDirectory))

	var sink ports.NotificationSink
	if cfg.Notification.Sink == config.SinkEmail {
		sink = email.NewEmailSink(&email.EmailConfig{
			SendGridAPIKey: cfg.Notification.SendGridAPIKey,
			FromEmail:      cfg.Notification.FromEmail,
			FromName:       cfg.Notification.FromName,
			OpsEmail:       cfg.Notification.OpsEmail,
		}, logger)
	} else {
		sink = notification.NewLogSink(logger)
	}
	dispatcher := services.NewAlertDispatcher(sink, &services.AlertDispatcherConfig{
		QueueSize:   cfg.Notification.QueueSize,
		SendTimeout: cfg.Notification.SendTimeout,
	}, metrics, logger)

	counter := services.NewWindowCounter(counterStore, &services.WindowCounterConfig{
		Timeout: cfg.Governance.CounterTimeout,
		Breaker: services.CircuitOptions{
			FailureThreshold: int64(cfg.Governance.BreakerFailureThreshold),
			OpenDuration:     cfg.Governance.BreakerOpenDuration,
			HalfOpenMaxCalls: int64(cfg.Governance.BreakerHalfOpenCalls),
		},
	}, metrics, logger)

	rateLimiter := services.NewRateLimiterService(counter, dispatcher, &services.RateLimiterConfig{KeyPrefix: cfg.Governance.KeyPrefix}, logger)

	costCache, err := services.NewCostSnapshotCache(costLedger, &services.CostSnapshotConfig{
		Schedule:         cfg.CostLedger.RefreshSchedule,
		FetchTimeout:     cfg.CostLedger.FetchTimeout,
		StalenessCeiling: cfg.CostLedger.StalenessCeiling,
		RefreshWorkers:   cfg.CostLedger.RefreshWorkers,
	}, clock, metrics, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cost snapshot cache:", err)
	}
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if tenants, err := tenantDirectory.ListTenants(warmCtx); err != nil {
		logger.Warn("Could not list tenants for cost warm-up:", err)
	} else {
		ids := make([]string, 0, len(tenants))
		for _, t := range tenants {
			ids = append(ids, t.ID)
		}
		if err := costCache.WarmUp(warmCtx, ids); err != nil {
			logger.Warn("Cost snapshot warm-up finished with errors:", err)
		}
	}
	warmCancel()
	costCache.Start()

	alertTracker := services.NewAlertTracker(counter, dispatcher, cfg.Governance.KeyPrefix, logger)
	budgetEnforcer := services.NewBudgetEnforcerService(costCache, alertTracker, metrics, logger)
	governor := services.NewGovernorService(tenantDirectory, rateLimiter, budgetEnforcer, reviewLog, metrics, logger)

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AdminJWTIssuer: cfg.Admin.Issuer,
	}

	deps := httpserver.ServerDeps{
		Governor:       governor,
		Directory:      tenantDirectory,
		RateLimiter:    rateLimiter,
		BudgetEnforcer: budgetEnforcer,
		CostRefresher:  costCache,
		ReviewLog:      reviewLog,
		Clock:          clock,
		HealthCheckers: healthCheckers,
	}

	server := httpserver.NewServer(serverConfig, cfg.Admin.JWTSecret, logger, deps)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown:", err)
	}
	costCache.Stop()
	governor.Wait()
	if err := dispatcher.Stop(ctx); err != nil {
		logger.Warn("Pending alerts were not delivered before shutdown:", err)
	}

	logger.Info("Server exited")
}
