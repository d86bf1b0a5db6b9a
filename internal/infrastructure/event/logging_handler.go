package event

import (
	"context"

	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LoggingHandler writes every event it receives to the structured log.
// Registered without event types it acts as the audit trail of the sync engine.
type LoggingHandler struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

// NewLoggingHandler creates a handler logging at info level
func NewLoggingHandler(l *zap.Logger) *LoggingHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &LoggingHandler{logger: l, level: zap.NewAtomicLevelAt(zap.InfoLevel)}
}

// EventTypes returns nil so the handler receives all events
func (h *LoggingHandler) EventTypes() []string {
	return nil
}

// Handle logs the event envelope with request scoped fields from ctx
func (h *LoggingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("organization_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if ce := h.logger.Check(h.level.Level(), "domain event"); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

// SetLevel changes the level events are logged at
func (h *LoggingHandler) SetLevel(level zap.AtomicLevel) {
	h.level = level
}

var _ shared.EventHandler = (*LoggingHandler)(nil)
