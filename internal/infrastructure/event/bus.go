package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers events synchronously to registered handlers.
// A failing or panicking handler is logged and does not stop delivery to
// the remaining handlers.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool

	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// BusOption configures the event bus
type BusOption func(*InMemoryEventBus)

// WithMetrics registers delivery counters with reg
func WithMetrics(reg prometheus.Registerer) BusOption {
	return func(b *InMemoryEventBus) {
		factory := promauto.With(reg)
		b.published = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_events_published_total",
			Help: "Domain events published on the bus.",
		}, []string{"event_type"})
		b.failures = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_event_handler_failures_total",
			Help: "Handler invocations that returned an error or panicked.",
		}, []string{"event_type"})
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers each event to its handlers in registration order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if event == nil {
			continue
		}
		if b.published != nil {
			b.published.WithLabelValues(event.EventType()).Inc()
		}

		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				if b.failures != nil {
					b.failures.WithLabelValues(event.EventType()).Inc()
				}
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler. Without explicit event types the handler's
// own EventTypes are used; an empty list subscribes to every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started", zap.Int("handlers", b.registry.Len()))
	return nil
}

// Stop marks the bus as stopped. Delivery is synchronous, so nothing is in flight.
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped")
	return nil
}

// Running reports whether Start has been called without a matching Stop
func (b *InMemoryEventBus) Running() bool {
	return b.running.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
