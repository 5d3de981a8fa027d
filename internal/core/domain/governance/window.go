package governance

import (
	"fmt"
	"time"
)

// Window is a fixed quota window. Buckets are aligned to UTC.
type Window int

const (
	WindowMinute Window = iota
	WindowDay
	WindowMonth
)

// Windows lists every window from tightest to loosest. Rate limit evaluation and
// violation tie-breaks follow this order.
var Windows = [...]Window{WindowMinute, WindowDay, WindowMonth}

func (w Window) String() string {
	switch w {
	case WindowMinute:
		return "minute"
	case WindowDay:
		return "day"
	case WindowMonth:
		return "month"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// Reason maps a violated window to its decision reason.
func (w Window) Reason() Reason {
	switch w {
	case WindowMinute:
		return ReasonRateLimitMinute
	case WindowDay:
		return ReasonRateLimitDay
	case WindowMonth:
		return ReasonRateLimitMonth
	default:
		return ReasonNone
	}
}

// Bounds returns the bucket containing now as [start, end).
func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch w {
	case WindowMinute:
		start := now.Truncate(time.Minute)
		return start, start.Add(time.Minute)
	case WindowDay:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	case WindowMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		return now, now
	}
}

func (w Window) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// WindowUsage is a read-only view of one quota window for a tenant.
type WindowUsage struct {
	Window    Window    `json:"window"`
	Count     int64     `json:"count"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
