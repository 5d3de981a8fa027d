package governance

import (
	"time"

	"github.com/google/uuid"
)

// ReviewRecord captures a decision that was forced open by an unexpected internal error.
type ReviewRecord struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// NewReviewRecord stamps a new record with a random id.
func NewReviewRecord(tenantID string, at time.Time, err error) ReviewRecord {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ReviewRecord{ID: uuid.New(), TenantID: tenantID, Timestamp: at.UTC(), Error: msg}
}
