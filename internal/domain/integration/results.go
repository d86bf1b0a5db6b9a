package integration

import (
	"time"

	"github.com/google/uuid"
)

// SyncDirection selects the phases of a sync job
type SyncDirection string

const (
	SyncDirectionPull SyncDirection = "pull"
	SyncDirectionPush SyncDirection = "push"
	SyncDirectionBoth SyncDirection = "both"
)

// IsValid returns true if the direction is known
func (d SyncDirection) IsValid() bool {
	switch d {
	case SyncDirectionPull, SyncDirectionPush, SyncDirectionBoth:
		return true
	default:
		return false
	}
}

// Pulls returns true if the job runs the pull phase
func (d SyncDirection) Pulls() bool { return d == SyncDirectionPull || d == SyncDirectionBoth }

// Pushes returns true if the job runs the push phase
func (d SyncDirection) Pushes() bool { return d == SyncDirectionPush || d == SyncDirectionBoth }

// Operation is the remote operation performed for a record
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationPull   Operation = "pull"
	OperationList   Operation = "list"
	OperationSkip   Operation = "skip"
)

// RecordOutcome reports what happened to one record during a job or push
type RecordOutcome struct {
	EntityType EntityType
	LocalID    uuid.UUID
	RemoteID   string
	Operation  Operation
	Status     SyncStatus
	Error      string
	Retryable  bool
	// Deferred is set when the push was postponed because a job holds the store lease
	Deferred bool
}

// Succeeded returns true if the record reached its target state
func (o RecordOutcome) Succeeded() bool {
	return o.Error == "" && !o.Deferred
}

// RecordError is an entry of a per-record error list
type RecordError struct {
	EntityType EntityType `json:"entityType"`
	LocalID    string     `json:"localId,omitempty"`
	RemoteID   string     `json:"remoteId,omitempty"`
	Message    string     `json:"message"`
	Retryable  bool       `json:"retryable"`
}

// NewRecordError builds a RecordError from a failed outcome
func NewRecordError(o RecordOutcome) RecordError {
	re := RecordError{
		EntityType: o.EntityType,
		RemoteID:   o.RemoteID,
		Message:    o.Error,
		Retryable:  o.Retryable,
	}
	if o.LocalID != uuid.Nil {
		re.LocalID = o.LocalID.String()
	}
	return re
}

// JobStatus is the lifecycle status of a sync job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusPartial   JobStatus = "partial"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal returns true once the job finished
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusPartial || s == JobStatusFailed
}

// maxSummaryErrors bounds the error list kept in a summary
const maxSummaryErrors = 100

// SyncSummary aggregates the outcomes of a sync job. A partial failure is a
// result, not an error.
type SyncSummary struct {
	JobID          uuid.UUID     `json:"jobId"`
	StoreID        uuid.UUID     `json:"storeId"`
	OrganizationID uuid.UUID     `json:"organizationId"`
	Direction      SyncDirection `json:"direction"`
	RequestedBy    string        `json:"requestedBy"`
	Status         JobStatus     `json:"status"`
	Total          int           `json:"total"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Deferred       int           `json:"deferred,omitempty"`
	Errors         []RecordError `json:"errors,omitempty"`
	PhaseErrors    []string      `json:"phaseErrors,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty"`
}

// Add folds one record outcome into the summary
func (s *SyncSummary) Add(o RecordOutcome) {
	if o.Operation == OperationList {
		s.PhaseErrors = append(s.PhaseErrors, o.Error)
		return
	}
	s.Total++
	switch {
	case o.Deferred:
		s.Deferred++
	case o.Succeeded():
		s.Succeeded++
	default:
		s.Failed++
		if len(s.Errors) < maxSummaryErrors {
			s.Errors = append(s.Errors, NewRecordError(o))
		}
	}
}

// Finish sets the terminal status from the counters
func (s *SyncSummary) Finish(at time.Time) {
	s.FinishedAt = &at
	switch {
	case s.Failed == 0 && len(s.PhaseErrors) == 0:
		s.Status = JobStatusSucceeded
	case s.Succeeded > 0:
		s.Status = JobStatusPartial
	default:
		s.Status = JobStatusFailed
	}
}

// Duration returns how long the job ran
func (s *SyncSummary) Duration() time.Duration {
	if s.FinishedAt == nil {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// RemoteSyncReport describes remote-side deletion during a bulk delete
type RemoteSyncReport struct {
	Synced  int           `json:"synced"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	Errors  []RecordError `json:"errors"`
}

// BulkDeleteResult is the structured result of deleting all records of a store
type BulkDeleteResult struct {
	EntityType   EntityType       `json:"entityType"`
	StoreID      uuid.UUID        `json:"storeId"`
	DeletedCount int64            `json:"deletedCount"`
	Total        int              `json:"total"`
	RemoteSync   RemoteSyncReport `json:"remoteSync"`
}

// StoreSyncStatus counts the sync states of one entity type in a store.
// Records is the number of local records; records never pushed have no
// state and are not in Counts.
type StoreSyncStatus struct {
	EntityType EntityType           `json:"entityType"`
	StoreID    uuid.UUID            `json:"storeId"`
	Records    int                  `json:"records"`
	Counts     map[SyncStatus]int64 `json:"counts"`
}
