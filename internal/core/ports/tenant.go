package ports

import (
	"context"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/tenant"
)

// TenantDirectory supplies read-only quota and budget configuration per tenant.
// GetTenant returns ErrTenantNotFound (possibly wrapped) for unknown ids.
type TenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]*tenant.Tenant, error)
}
