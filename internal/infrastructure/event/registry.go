package event

import (
	"slices"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers. A handler registered
// without event types receives every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		byType: make(map[string][]shared.EventHandler),
	}
}

// Register adds handler for eventTypes. Registering the same handler twice
// for a type is a no-op.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = appendUnique(r.wildcard, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.byType[eventType] = appendUnique(r.byType[eventType], handler)
	}
}

// Unregister removes handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = without(r.wildcard, handler)
	for eventType, handlers := range r.byType {
		remaining := without(handlers, handler)
		if len(remaining) == 0 {
			delete(r.byType, eventType)
			continue
		}
		r.byType[eventType] = remaining
	}
}

// GetHandlers returns the handlers for eventType followed by wildcard handlers
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	out = append(out, typed...)
	for _, h := range r.wildcard {
		out = appendUnique(out, h)
	}
	return out
}

// Len returns the number of distinct registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []shared.EventHandler
	for _, h := range r.wildcard {
		all = appendUnique(all, h)
	}
	for _, handlers := range r.byType {
		for _, h := range handlers {
			all = appendUnique(all, h)
		}
	}
	return len(all)
}

func appendUnique(handlers []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	if slices.Contains(handlers, h) {
		return handlers
	}
	return append(handlers, h)
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	return slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool {
		return h == target
	})
}
