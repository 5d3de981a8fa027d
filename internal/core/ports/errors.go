package ports

import "errors"

var (
	// ErrStoreUnavailable is returned when the shared counter store cannot be reached or times out.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrTenantNotFound is returned by a tenant directory for an unknown tenant id.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrCostLedgerUnavailable is returned when spend for a tenant cannot be fetched.
	ErrCostLedgerUnavailable = errors.New("cost ledger unavailable")
	ErrInvalidConfig         = errors.New("invalid configuration")
)
