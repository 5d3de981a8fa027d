package ports

import "context"

// HealthChecker reports on one dependency of the request path for GET /health.
// Name is the key used in the response body; Check returns nil while the dependency can serve.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
