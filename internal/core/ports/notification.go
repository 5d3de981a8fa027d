package ports

import (
	"context"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
)

// NotificationSink delivers a single alert event.
type NotificationSink interface {
	Send(ctx context.Context, event *notification.Event) error
}

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Notify(event *notification.Event)
}
