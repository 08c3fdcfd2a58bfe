package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DefaultFeedCapacity is the number of entries a Feed keeps
const DefaultFeedCapacity = 100

// Feed keeps the most recent notifications and toasts in memory, newest
// last, for the notifications endpoint.
type Feed struct {
	mu            sync.RWMutex
	capacity      int
	notifications []Notification
	toasts        []Toast
}

// NewFeed creates a feed holding at most capacity entries of each kind
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{capacity: capacity}
}

// Notify appends n, evicting the oldest entry when full
func (f *Feed) Notify(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = appendBounded(f.notifications, n, f.capacity)
	return nil
}

// Toast appends t, evicting the oldest entry when full
func (f *Feed) Toast(_ context.Context, t Toast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = appendBounded(f.toasts, t, f.capacity)
	return nil
}

// Notifications returns up to limit notifications, newest first.
// A limit of zero returns all of them.
func (f *Feed) Notifications(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return newestFirst(f.notifications, limit)
}

// Toasts returns up to limit toasts, newest first
func (f *Feed) Toasts(limit int) []Toast {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return newestFirst(f.toasts, limit)
}

// Clear drops every entry
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = nil
	f.toasts = nil
}

func appendBounded[T any](items []T, item T, capacity int) []T {
	items = append(items, item)
	if over := len(items) - capacity; over > 0 {
		items = append(items[:0:0], items[over:]...)
	}
	return items
}

func newestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}

// LogSink writes notifications and toasts to a zap logger.
// Useful for development and headless deployments.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new logging sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs the notification
func (s *LogSink) Notify(_ context.Context, n Notification) error {
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	if n.Link != "" {
		fields = append(fields, zap.String("link", n.Link))
	}
	if len(n.Details) > 0 {
		fields = append(fields, zap.Any("details", n.Details))
	}
	s.logger.Info("notification", fields...)
	return nil
}

// Toast logs the toast at a level matching its severity
func (s *LogSink) Toast(_ context.Context, t Toast) error {
	switch t.Level {
	case LevelError:
		s.logger.Error("toast", zap.String("message", t.Message))
	case LevelWarning:
		s.logger.Warn("toast", zap.String("message", t.Message))
	default:
		s.logger.Info("toast", zap.String("message", t.Message), zap.String("level", string(t.Level)))
	}
	return nil
}

var (
	_ NotifySink = (*Feed)(nil)
	_ ToastSink  = (*Feed)(nil)
	_ NotifySink = (*LogSink)(nil)
	_ ToastSink  = (*LogSink)(nil)
)
