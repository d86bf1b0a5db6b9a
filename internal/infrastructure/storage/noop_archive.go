package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/storesync/internal/domain/integration"
)

// NoopSummaryArchive discards reports. It is used when archiving is disabled.
type NoopSummaryArchive struct{}

// NewNoopSummaryArchive creates a NoopSummaryArchive
func NewNoopSummaryArchive() *NoopSummaryArchive {
	return &NoopSummaryArchive{}
}

func (NoopSummaryArchive) ArchiveJobSummary(context.Context, integration.SyncSummary) (string, error) {
	return "", nil
}

func (NoopSummaryArchive) ArchiveBulkDelete(context.Context, uuid.UUID, integration.BulkDeleteResult) (string, error) {
	return "", nil
}
