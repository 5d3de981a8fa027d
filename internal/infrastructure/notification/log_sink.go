package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
)

// LogSink writes alerts to the structured log. It is the default sink when no mail provider is configured.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, ev *notification.Event) error {
	fields := logrus.Fields{
		"event_id":  ev.ID.String(),
		"tenant_id": ev.TenantID,
		"kind":      string(ev.Kind),
		"timestamp": ev.Timestamp,
	}
	if ev.Recipient != "" {
		fields["recipient"] = ev.Recipient
	}
	for k, v := range ev.Detail {
		fields["detail_"+k] = v
	}
	s.logger.WithFields(fields).Warn("governance alert")
	return nil
}
