package integration

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
)

// SyncResult is the `sync` sub-object of record responses. It reports the
// remote outcome separately from the local write, which always succeeded.
type SyncResult struct {
	Status       integration.SyncStatus `json:"status"`
	RemoteID     string                 `json:"remoteId,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Retryable    bool                   `json:"retryable,omitempty"`
	Deferred     bool                   `json:"deferred,omitempty"`
	LastSyncedAt *time.Time             `json:"lastSyncedAt,omitempty"`
}

// Succeeded returns true if the record reached the remote platform
func (r *SyncResult) Succeeded() bool {
	return r.Status == integration.SyncStatusSynced && r.Error == ""
}

// SyncResultFromOutcome converts a push outcome
func SyncResultFromOutcome(out integration.RecordOutcome) *SyncResult {
	return &SyncResult{
		Status:    out.Status,
		RemoteID:  out.RemoteID,
		Error:     out.Error,
		Retryable: out.Retryable,
		Deferred:  out.Deferred,
	}
}

// SyncResultFromState converts a stored sync state
func SyncResultFromState(st *integration.SyncState) *SyncResult {
	return &SyncResult{
		Status:       st.Status,
		RemoteID:     st.RemoteIDValue(),
		Error:        st.ErrorMessage(),
		LastSyncedAt: st.LastSyncedAt,
	}
}

// SyncResultFromError reports a push that could not be attempted, e.g.
// because the store has no credentials. The local write is unaffected.
func SyncResultFromError(err error) *SyncResult {
	return &SyncResult{
		Status:    integration.SyncStatusNotSynced,
		Error:     err.Error(),
		Retryable: integration.IsRetryable(err),
	}
}

// SyncStateResponse is the full sync state of a record
type SyncStateResponse struct {
	EntityType    integration.EntityType `json:"entityType"`
	LocalID       string                 `json:"localId"`
	StoreID       string                 `json:"storeId"`
	RemoteID      string                 `json:"remoteId,omitempty"`
	SyncStatus    integration.SyncStatus `json:"syncStatus"`
	SyncError     string                 `json:"syncError,omitempty"`
	LastSyncedAt  *time.Time             `json:"lastSyncedAt,omitempty"`
	LastAttemptAt *time.Time             `json:"lastAttemptAt,omitempty"`
	AttemptCount  int                    `json:"attemptCount"`
}

// ToSyncStateResponse converts a sync state
func ToSyncStateResponse(st *integration.SyncState) SyncStateResponse {
	return SyncStateResponse{
		EntityType:    st.EntityType,
		LocalID:       st.LocalID.String(),
		StoreID:       st.StoreID.String(),
		RemoteID:      st.RemoteIDValue(),
		SyncStatus:    st.Status,
		SyncError:     st.ErrorMessage(),
		LastSyncedAt:  st.LastSyncedAt,
		LastAttemptAt: st.LastAttemptAt,
		AttemptCount:  st.AttemptCount,
	}
}
