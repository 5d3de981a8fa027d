package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
)

// AlertDispatcherConfig sizes the dispatch queue.
type AlertDispatcherConfig struct {
	QueueSize   int
	SendTimeout time.Duration
}

// AlertDispatcher hands events to a NotificationSink from a single background worker.
// Notify never blocks: when the queue is full the event is dropped and counted.
// Delivery failures are logged and not retried.
type AlertDispatcher struct {
	sink    ports.NotificationSink
	queue   chan *notification.Event
	timeout time.Duration
	metrics *GovernanceMetrics
	logger  *logrus.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAlertDispatcher(sink ports.NotificationSink, cfg *AlertDispatcherConfig, metrics *GovernanceMetrics, logger *logrus.Logger) *AlertDispatcher {
	size := 256
	timeout := 10 * time.Second
	if cfg != nil {
		if cfg.QueueSize > 0 {
			size = cfg.QueueSize
		}
		if cfg.SendTimeout > 0 {
			timeout = cfg.SendTimeout
		}
	}
	d := &AlertDispatcher{
		sink:    sink,
		queue:   make(chan *notification.Event, size),
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *AlertDispatcher) Notify(ev *notification.Event) {
	if ev == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ev, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- ev:
		d.metrics.alertEmitted(string(ev.Kind))
	default:
		d.drop(ev, "queue full")
	}
}

// Stop closes the queue and waits for queued events to be delivered or ctx to expire.
func (d *AlertDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AlertDispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sink.Send(ctx, ev)
		cancel()
		if err != nil && d.logger != nil {
			d.logger.WithFields(logrus.Fields{"tenant_id": ev.TenantID, "kind": string(ev.Kind), "event_id": ev.ID.String()}).WithError(err).Warn("alert delivery failed")
		}
	}
}

func (d *AlertDispatcher) drop(ev *notification.Event, why string) {
	d.metrics.alertDropped()
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{"tenant_id": ev.TenantID, "kind": string(ev.Kind)}).Warn("alert dropped: " + why)
	}
}
