package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/pkg/logger"
)

// EventHandler processes a domain event.
type EventHandler func(ctx context.Context, event *DomainEvent) error

// EventDispatcher routes domain events to registered handlers.
type EventDispatcher struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
}

func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Register registers handler for each of the given event types.
func (d *EventDispatcher) Register(handler EventHandler, types ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range types {
		d.handlers[t] = append(d.handlers[t], handler)
	}
}

// Dispatch calls every handler registered for the event type, in
// registration order. A failing handler does not stop the others; the first
// error is returned.
func (d *EventDispatcher) Dispatch(ctx context.Context, event *DomainEvent) error {
	d.mu.RLock()
	handlers := d.handlers[event.EventType]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("no handlers registered for event type",
			zap.String("event_type", string(event.EventType)),
			zap.String("event_id", event.EventID),
		)
		return nil
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			logger.Error("event handler failed",
				zap.String("event_type", string(event.EventType)),
				zap.String("aggregate_id", event.AggregateID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("handler for %s failed: %w", event.EventType, err)
			}
		}
	}

	return firstErr
}

// DispatchAll dispatches events in order, logging and skipping failures.
// Used after commit, when a handler error can no longer undo the change.
func (d *EventDispatcher) DispatchAll(ctx context.Context, events []*DomainEvent) {
	if d == nil {
		return
	}
	for _, e := range events {
		_ = d.Dispatch(ctx, e)
	}
}
