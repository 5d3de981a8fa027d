package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	Governance   GovernanceConfig
	Directory    DirectoryConfig
	CostLedger   CostLedgerConfig
	Notification NotificationConfig
	Admin        AdminConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	AutoMigrate     bool
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	ClusterAddrs []string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

const (
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	SinkLog         = "log"
	SinkEmail       = "email"
)

// GovernanceConfig tunes the request path.
type GovernanceConfig struct {
	KeyPrefix string
	// CounterBackend is redis (shared across instances) or memory (single instance only).
	CounterBackend          string
	CounterTimeout          time.Duration
	BreakerFailureThreshold int
	BreakerOpenDuration     time.Duration
	BreakerHalfOpenCalls    int
	ReviewLogSize           int
}

type DirectoryConfig struct {
	Backend          string
	FilePath         string
	CacheTTL         time.Duration
	NegativeCacheTTL time.Duration
	WatchDebounce    time.Duration
}

type CostLedgerConfig struct {
	Backend          string
	RefreshSchedule  string
	FetchTimeout     time.Duration
	StalenessCeiling time.Duration
	RefreshWorkers   int
}

type NotificationConfig struct {
	Sink           string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	OpsEmail       string
	QueueSize      int
	SendTimeout    time.Duration
}

type AdminConfig struct {
	JWTSecret string
	Issuer    string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "governance"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			ClusterAddrs: getSliceEnv("REDIS_CLUSTER_ADDRS", nil),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 50),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 10),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 100*time.Millisecond),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 100*time.Millisecond),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 200*time.Millisecond),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Governance: GovernanceConfig{
			KeyPrefix:               getEnv("GOVERNANCE_KEY_PREFIX", "governance"),
			CounterBackend:          strings.ToLower(getEnv("GOVERNANCE_COUNTER_BACKEND", BackendRedis)),
			CounterTimeout:          getDurationEnv("GOVERNANCE_COUNTER_TIMEOUT", 50*time.Millisecond),
			BreakerFailureThreshold: getIntEnv("GOVERNANCE_BREAKER_FAILURES", 5),
			BreakerOpenDuration:     getDurationEnv("GOVERNANCE_BREAKER_OPEN_DURATION", 5*time.Second),
			BreakerHalfOpenCalls:    getIntEnv("GOVERNANCE_BREAKER_HALF_OPEN_CALLS", 1),
			ReviewLogSize:           getIntEnv("GOVERNANCE_REVIEW_LOG_SIZE", 1000),
		},
		Directory: DirectoryConfig{
			Backend:          strings.ToLower(getEnv("TENANT_DIRECTORY_BACKEND", BackendPostgres)),
			FilePath:         getEnv("TENANT_DIRECTORY_FILE", "tenants.yaml"),
			CacheTTL:         getDurationEnv("TENANT_CACHE_TTL", 30*time.Second),
			NegativeCacheTTL: getDurationEnv("TENANT_NEGATIVE_CACHE_TTL", 5*time.Second),
			WatchDebounce:    getDurationEnv("TENANT_DIRECTORY_DEBOUNCE", 250*time.Millisecond),
		},
		CostLedger: CostLedgerConfig{
			Backend:          strings.ToLower(getEnv("COST_LEDGER_BACKEND", BackendPostgres)),
			RefreshSchedule:  getEnv("COST_REFRESH_SCHEDULE", "@every 5m"),
			FetchTimeout:     getDurationEnv("COST_FETCH_TIMEOUT", 5*time.Second),
			StalenessCeiling: getDurationEnv("COST_STALENESS_CEILING", 15*time.Minute),
			RefreshWorkers:   getIntEnv("COST_REFRESH_WORKERS", 8),
		},
		Notification: NotificationConfig{
			Sink:        strings.ToLower(getEnv("NOTIFICATION_SINK", SinkLog)),
			FromEmail:   getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:    getEnv("FROM_NAME", "Tenant Governance"),
			OpsEmail:    getEnv("OPS_EMAIL", ""),
			QueueSize:   getIntEnv("NOTIFICATION_QUEUE_SIZE", 256),
			SendTimeout: getDurationEnv("NOTIFICATION_SEND_TIMEOUT", 10*time.Second),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
			Issuer:    getEnv("ADMIN_JWT_ISSUER", ""),
		},
	}

	if cfg.Notification.Sink == SinkEmail {
		cfg.Notification.SendGridAPIKey = getEnvRequired("SENDGRID_API_KEY")
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NeedsDatabase reports whether any configured backend is Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.Directory.Backend == BackendPostgres || c.CostLedger.Backend == BackendPostgres
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string
	switch c.Governance.CounterBackend {
	case BackendRedis, BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown counter backend %q", c.Governance.CounterBackend))
	}
	switch c.Directory.Backend {
	case BackendPostgres, BackendFile:
	default:
		problems = append(problems, fmt.Sprintf("unknown tenant directory backend %q", c.Directory.Backend))
	}
	switch c.CostLedger.Backend {
	case BackendPostgres, BackendFile:
	default:
		problems = append(problems, fmt.Sprintf("unknown cost ledger backend %q", c.CostLedger.Backend))
	}
	if c.CostLedger.Backend == BackendFile && c.Directory.Backend != BackendFile {
		problems = append(problems, "file cost ledger requires the file tenant directory")
	}
	switch c.Notification.Sink {
	case SinkLog, SinkEmail:
	default:
		problems = append(problems, fmt.Sprintf("unknown notification sink %q", c.Notification.Sink))
	}
	if c.Governance.CounterTimeout <= 0 {
		problems = append(problems, "counter timeout must be positive")
	}
	if c.Governance.BreakerFailureThreshold <= 0 {
		problems = append(problems, "breaker failure threshold must be positive")
	}
	if c.Governance.BreakerOpenDuration <= 0 {
		problems = append(problems, "breaker open duration must be positive")
	}
	if c.CostLedger.FetchTimeout <= 0 || c.CostLedger.StalenessCeiling <= 0 {
		problems = append(problems, "cost ledger timeouts must be positive")
	}
	if c.Directory.CacheTTL < 0 {
		problems = append(problems, "tenant cache ttl must not be negative")
	}
	if c.Notification.QueueSize <= 0 {
		problems = append(problems, "notification queue size must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ports.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getSliceEnv splits a comma separated value, dropping empty items.
func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
