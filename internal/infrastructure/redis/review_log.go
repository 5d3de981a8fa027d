package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
)

// ReviewLog keeps the most recent flagged decisions in a capped Redis list, newest first.
type ReviewLog struct {
	r      redis.Cmdable
	key    string
	maxLen int64
}

func NewReviewLog(r redis.Cmdable, key string, maxLen int64) *ReviewLog {
	if key == "" {
		key = "governance:reviews"
	}
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &ReviewLog{r: r, key: key, maxLen: maxLen}
}

func (l *ReviewLog) Record(ctx context.Context, rec governance.ReviewRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal review record: %w", err)
	}
	pipe := l.r.TxPipeline()
	pipe.LPush(ctx, l.key, b)
	pipe.LTrim(ctx, l.key, 0, l.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record review: %w", err)
	}
	return nil
}

func (l *ReviewLog) List(ctx context.Context, limit int) ([]governance.ReviewRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := l.r.LRange(ctx, l.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make([]governance.ReviewRecord, 0, len(raw))
	for _, s := range raw {
		var rec governance.ReviewRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode review record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
