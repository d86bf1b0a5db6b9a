package integration

import (
	"context"
	"fmt"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SummaryArchive stores finished job reports. storage.S3SummaryArchive implements it.
type SummaryArchive interface {
	ArchiveJobSummary(ctx context.Context, summary integration.SyncSummary) (string, error)
	ArchiveBulkDelete(ctx context.Context, tenantID uuid.UUID, result integration.BulkDeleteResult) (string, error)
}

// ArchiveHandler archives job summaries and bulk delete reports as they complete
type ArchiveHandler struct {
	archive SummaryArchive
	logger  *zap.Logger
}

// NewArchiveHandler creates an ArchiveHandler
func NewArchiveHandler(archive SummaryArchive, logger *zap.Logger) *ArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveHandler{archive: archive, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ArchiveHandler) EventTypes() []string {
	return []string{
		integration.EventTypeSyncJobCompleted,
		integration.EventTypeBulkDeleteDone,
	}
}

// Handle uploads the report carried by the event
func (h *ArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		key string
		err error
	)
	switch e := event.(type) {
	case *integration.SyncJobCompletedEvent:
		key, err = h.archive.ArchiveJobSummary(ctx, e.Summary)
	case *integration.BulkDeleteCompletedEvent:
		key, err = h.archive.ArchiveBulkDelete(ctx, e.TenantID(), e.Result)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("archive %s: %w", event.EventType(), err)
	}
	if key != "" {
		h.logger.Info("sync report archived",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.String("key", key),
		)
	}
	return nil
}

var _ shared.EventHandler = (*ArchiveHandler)(nil)
