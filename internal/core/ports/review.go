package ports

import (
	"context"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

// ReviewLog stores decisions that were forced open by unexpected errors.
type ReviewLog interface {
	Record(ctx context.Context, rec governance.ReviewRecord) error
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]governance.ReviewRecord, error)
}
