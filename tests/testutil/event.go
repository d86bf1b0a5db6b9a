package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/storesync/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder creates a recorder for the given event types; none means all.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *EventRecorder) EventTypes() []string {
	return h.eventTypes
}

// Handle records an event.
func (h *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the recorded events.
func (h *EventRecorder) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]shared.DomainEvent, len(h.handled))
	copy(result, h.handled)
	return result
}

// OfType returns the recorded events of one type, in arrival order.
func (h *EventRecorder) OfType(eventType string) []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []shared.DomainEvent
	for _, e := range h.handled {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// HandledCount returns the number of recorded events.
func (h *EventRecorder) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError sets the error to return from Handle.
func (h *EventRecorder) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Publish records events directly, so the recorder can stand in for a bus.
func (h *EventRecorder) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		if err := h.Handle(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// WaitForEventType waits until at least count events of a type were recorded.
func WaitForEventType(t *testing.T, recorder *EventRecorder, eventType string, count int, timeout time.Duration) {
	t.Helper()
	RequireEventually(t, func() bool {
		return len(recorder.OfType(eventType)) >= count
	}, timeout, 10*time.Millisecond, "waiting for %d %s events", count, eventType)
}
