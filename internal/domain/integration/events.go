package integration

import (
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeSyncJobStarted    = "integration.sync_job.started"
	EventTypeSyncRecordOutcome = "integration.sync_record.outcome"
	EventTypeSyncJobCompleted  = "integration.sync_job.completed"
	EventTypeBulkDeleteDone    = "integration.bulk_delete.completed"

	// AggregateTypeSyncJob is the aggregate type of job events
	AggregateTypeSyncJob = "SyncJob"
	// AggregateTypeStore is the aggregate type of store-wide events
	AggregateTypeStore = "Store"
)

// SyncJobStartedEvent is raised when a worker picks up a job
type SyncJobStartedEvent struct {
	shared.BaseDomainEvent
	StoreID     uuid.UUID     `json:"store_id"`
	Direction   SyncDirection `json:"direction"`
	RequestedBy string        `json:"requested_by"`
}

// NewSyncJobStartedEvent creates a SyncJobStartedEvent
func NewSyncJobStartedEvent(jobID, tenantID, storeID uuid.UUID, direction SyncDirection, requestedBy string) *SyncJobStartedEvent {
	return &SyncJobStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncJobStarted, AggregateTypeSyncJob, jobID, tenantID),
		StoreID:         storeID,
		Direction:       direction,
		RequestedBy:     requestedBy,
	}
}

// SyncRecordOutcomeEvent reports the outcome of one record within a job
type SyncRecordOutcomeEvent struct {
	shared.BaseDomainEvent
	StoreID uuid.UUID     `json:"store_id"`
	Outcome RecordOutcome `json:"outcome"`
}

// NewSyncRecordOutcomeEvent creates a SyncRecordOutcomeEvent
func NewSyncRecordOutcomeEvent(jobID, tenantID, storeID uuid.UUID, outcome RecordOutcome) *SyncRecordOutcomeEvent {
	return &SyncRecordOutcomeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncRecordOutcome, AggregateTypeSyncJob, jobID, tenantID),
		StoreID:         storeID,
		Outcome:         outcome,
	}
}

// SyncJobCompletedEvent carries the final job summary
type SyncJobCompletedEvent struct {
	shared.BaseDomainEvent
	Summary SyncSummary `json:"summary"`
}

// NewSyncJobCompletedEvent creates a SyncJobCompletedEvent
func NewSyncJobCompletedEvent(summary SyncSummary) *SyncJobCompletedEvent {
	return &SyncJobCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncJobCompleted, AggregateTypeSyncJob, summary.JobID, summary.OrganizationID),
		Summary:         summary,
	}
}

// BulkDeleteCompletedEvent carries the result of a bulk delete
type BulkDeleteCompletedEvent struct {
	shared.BaseDomainEvent
	Result BulkDeleteResult `json:"result"`
}

// NewBulkDeleteCompletedEvent creates a BulkDeleteCompletedEvent
func NewBulkDeleteCompletedEvent(tenantID uuid.UUID, result BulkDeleteResult) *BulkDeleteCompletedEvent {
	return &BulkDeleteCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBulkDeleteDone, AggregateTypeStore, result.StoreID, tenantID),
		Result:          result,
	}
}
