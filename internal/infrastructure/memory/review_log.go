package memory

import (
	"context"
	"sync"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

// ReviewLog keeps the newest maxLen review records in memory.
type ReviewLog struct {
	mu      sync.Mutex
	records []governance.ReviewRecord
	maxLen  int
}

func NewReviewLog(maxLen int) *ReviewLog {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &ReviewLog{maxLen: maxLen}
}

func (l *ReviewLog) Record(_ context.Context, rec governance.ReviewRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if over := len(l.records) - l.maxLen; over > 0 {
		l.records = append(l.records[:0:0], l.records[over:]...)
	}
	return nil
}

func (l *ReviewLog) List(_ context.Context, limit int) ([]governance.ReviewRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]governance.ReviewRecord, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}
