package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies a notification
type Kind string

const (
	KindProductCreated Kind = "product_created"
	KindStockAdjusted  Kind = "stock_adjusted"
	KindLowStock       Kind = "low_stock"
	KindStockSold      Kind = "stock_sold"
	KindStorage        Kind = "storage"
)

// Level is the severity of a toast
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a persistent, user-visible message
type Notification struct {
	ID          uuid.UUID         `json:"id"`
	Kind        Kind              `json:"kind"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
	Link        string            `json:"link,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Toast is a transient message
type Toast struct {
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotifySink receives notifications
type NotifySink interface {
	Notify(ctx context.Context, n Notification) error
}

// ToastSink receives toasts
type ToastSink interface {
	Toast(ctx context.Context, t Toast) error
}

// Emitter fans notifications and toasts out to the configured sinks.
// A failing sink is logged and does not stop delivery to the others.
type Emitter struct {
	notifySinks []NotifySink
	toastSinks  []ToastSink
	logger      *zap.Logger
	clock       func() time.Time
}

// NewEmitter creates an emitter without sinks
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{logger: logger, clock: time.Now}
}

// AddNotifySink registers a notification sink
func (e *Emitter) AddNotifySink(sink NotifySink) *Emitter {
	e.notifySinks = append(e.notifySinks, sink)
	return e
}

// AddToastSink registers a toast sink
func (e *Emitter) AddToastSink(sink ToastSink) *Emitter {
	e.toastSinks = append(e.toastSinks, sink)
	return e
}

// Notify builds a notification and delivers it to every notification sink
func (e *Emitter) Notify(ctx context.Context, kind Kind, title, description string, details map[string]string, link, icon string) {
	n := Notification{
		ID:          uuid.New(),
		Kind:        kind,
		Title:       title,
		Description: description,
		Details:     details,
		Link:        link,
		Icon:        icon,
		CreatedAt:   e.clock(),
	}
	for _, sink := range e.notifySinks {
		if err := sink.Notify(ctx, n); err != nil {
			e.logger.Error("failed to deliver notification",
				zap.String("kind", string(kind)),
				zap.String("title", title),
				zap.Error(err),
			)
		}
	}
}

// Toast delivers a transient message to every toast sink
func (e *Emitter) Toast(ctx context.Context, message string, level Level) {
	t := Toast{Message: message, Level: level, CreatedAt: e.clock()}
	for _, sink := range e.toastSinks {
		if err := sink.Toast(ctx, t); err != nil {
			e.logger.Error("failed to deliver toast",
				zap.String("level", string(level)),
				zap.Error(err),
			)
		}
	}
}
