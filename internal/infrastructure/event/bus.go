package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/storesync/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish after Stop in async mode
var ErrBusStopped = errors.New("event: bus stopped")

// BusOption configures the event bus
type BusOption func(*InMemoryEventBus)

// WithAsyncDelivery makes Publish enqueue events for a background dispatcher
// instead of running handlers on the caller's goroutine. Start must be called.
func WithAsyncDelivery(bufferSize int) BusOption {
	return func(b *InMemoryEventBus) {
		if bufferSize <= 0 {
			bufferSize = 256
		}
		b.queue = make(chan envelope, bufferSize)
	}
}

// WithHandlerTimeout bounds each handler invocation
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		b.handlerTimeout = d
	}
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus implements EventBus with in-process pub/sub. Handler
// failures and panics are logged and never reach the publisher.
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	handlerTimeout time.Duration

	queue   chan envelope
	queueMu sync.RWMutex // guards sends against close(queue)
	running atomic.Bool
	stopped bool
	wg      sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
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

// Publish delivers events to the registered handlers. In async mode the
// events are queued; Publish blocks while the queue is full until ctx is done.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.queue == nil {
		for _, event := range events {
			b.dispatch(ctx, event)
		}
		return nil
	}

	b.queueMu.RLock()
	defer b.queueMu.RUnlock()
	if b.stopped {
		return ErrBusStopped
	}
	// handlers outlive the publishing request
	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		select {
		case b.queue <- envelope{ctx: detached, event: event}:
		case <-ctx.Done():
			return fmt.Errorf("event: enqueue %s: %w", event.EventType(), ctx.Err())
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the background dispatcher in async mode
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	if b.queue != nil {
		b.wg.Add(1)
		go b.loop()
	}
	b.logger.Info("event bus started", zap.Bool("async", b.queue != nil))
	return nil
}

// Stop drains queued events and stops the dispatcher, or gives up when ctx is done
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	if b.queue != nil {
		b.queueMu.Lock()
		if !b.stopped {
			b.stopped = true
			close(b.queue)
		}
		b.queueMu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped",
			zap.Int64("delivered", b.delivered.Load()),
			zap.Int64("failed", b.failed.Load()),
		)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event: stop: %w", ctx.Err())
	}
}

// Stats returns the number of successful and failed handler invocations
func (b *InMemoryEventBus) Stats() (delivered, failed int64) {
	return b.delivered.Load(), b.failed.Load()
}

func (b *InMemoryEventBus) loop() {
	defer b.wg.Done()
	for env := range b.queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.failed.Add(1)
			// Log error but continue with other handlers
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
			continue
		}
		b.delivered.Add(1)
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	if b.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.handlerTimeout)
		defer cancel()
	}
	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
