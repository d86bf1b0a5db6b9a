package integration

import (
	"context"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
)

// RecordSyncer is the part of the orchestrator the CRUD services depend on
type RecordSyncer interface {
	PushRecord(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (integration.RecordOutcome, error)
	DeleteRecord(ctx context.Context, entityType integration.EntityType, localID uuid.UUID, propagateRemote bool) (*integration.RecordOutcome, error)
	GetSyncState(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (*integration.SyncState, error)
	MarkChanged(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) error
}

var _ RecordSyncer = (*SyncOrchestrator)(nil)

// PushOnWrite pushes a freshly written record and reports the result as a
// SyncResult. A push that cannot be attempted is reported, not returned:
// the local write has already been committed.
func PushOnWrite(ctx context.Context, syncer RecordSyncer, entityType integration.EntityType, localID uuid.UUID) *SyncResult {
	out, err := syncer.PushRecord(ctx, entityType, localID)
	if err != nil {
		return SyncResultFromError(err)
	}
	return SyncResultFromOutcome(out)
}

// CurrentSyncResult reads the stored sync state of a record, or nil when
// it cannot be read.
func CurrentSyncResult(ctx context.Context, syncer RecordSyncer, entityType integration.EntityType, localID uuid.UUID) *SyncResult {
	st, err := syncer.GetSyncState(ctx, entityType, localID)
	if err != nil {
		return nil
	}
	return SyncResultFromState(st)
}

// MarkChangedOnWrite flags an edited record for the next push and reports
// its state. A failure to flag it is reported, not returned.
func MarkChangedOnWrite(ctx context.Context, syncer RecordSyncer, entityType integration.EntityType, localID uuid.UUID) *SyncResult {
	if err := syncer.MarkChanged(ctx, entityType, localID); err != nil {
		return SyncResultFromError(err)
	}
	return CurrentSyncResult(ctx, syncer, entityType, localID)
}
