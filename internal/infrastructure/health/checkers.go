package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	infraDB "github.com/avatarctic/tenant-governance/go/internal/infrastructure/db"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.UniversalClient }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// directoryHealthChecker verifies the tenant directory answers.
type directoryHealthChecker struct{ dir ports.TenantDirectory }

func (d *directoryHealthChecker) Name() string { return "tenant_directory" }
func (d *directoryHealthChecker) Check(ctx context.Context) error {
	_, err := d.dir.ListTenants(ctx)
	return err
}

func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

func NewRedisHealthChecker(client redis.UniversalClient) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

func NewDirectoryHealthChecker(dir ports.TenantDirectory) ports.HealthChecker {
	return &directoryHealthChecker{dir: dir}
}
