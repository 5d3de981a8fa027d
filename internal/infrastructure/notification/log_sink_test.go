package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/notification"
)

func TestLogSink_WritesStructuredWarning(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := notification.NewLogSink(logger)

	ev := domain.NewEvent("acme", domain.KindRateLimit, time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC), map[string]any{"window": "minute"})
	ev.Recipient = "admin@acme.test"
	require.NoError(t, sink.Send(context.Background(), ev))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "governance alert", entry.Message)
	assert.Equal(t, "acme", entry.Data["tenant_id"])
	assert.Equal(t, "rate_limit", entry.Data["kind"])
	assert.Equal(t, "minute", entry.Data["detail_window"])
	assert.Equal(t, "admin@acme.test", entry.Data["recipient"])
}
