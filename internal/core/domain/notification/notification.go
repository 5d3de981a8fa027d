package notification

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the alert category emitted by the governance engine.
type Kind string

const (
	KindRateLimit      Kind = "rate_limit"
	KindBudgetWarning  Kind = "budget_warning"
	KindBudgetExceeded Kind = "budget_exceeded"
)

// Event is a fire-and-forget alert. Delivery and formatting belong to the sink.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Kind      Kind           `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
	// Recipient is the tenant admin contact when one is configured.
	Recipient string `json:"recipient,omitempty"`
}

func NewEvent(tenantID string, kind Kind, at time.Time, detail map[string]any) *Event {
	return &Event{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Kind:      kind,
		Timestamp: at.UTC(),
		Detail:    detail,
	}
}
