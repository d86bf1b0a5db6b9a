package integration

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxSyncErrorLength bounds the stored error message
const maxSyncErrorLength = 2000

// SyncState tracks the synchronization of one local record with the remote platform.
type SyncState struct {
	EntityType    EntityType
	LocalID       uuid.UUID
	StoreID       uuid.UUID
	TenantID      uuid.UUID
	RemoteID      *string
	Status        SyncStatus
	LastSyncedAt  *time.Time
	LastAttemptAt *time.Time
	SyncError     *string
	AttemptCount  int
	UpdatedAt     time.Time
}

// NewSyncState creates a not_synced state for a freshly created local record
func NewSyncState(entityType EntityType, localID, storeID, tenantID uuid.UUID) (*SyncState, error) {
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if localID == uuid.Nil || storeID == uuid.Nil || tenantID == uuid.Nil {
		return nil, fmt.Errorf("integration: sync state requires local, store and tenant ids")
	}
	return &SyncState{
		EntityType: entityType,
		LocalID:    localID,
		StoreID:    storeID,
		TenantID:   tenantID,
		Status:     SyncStatusNotSynced,
		UpdatedAt:  time.Now(),
	}, nil
}

// HasRemoteID returns true once the remote platform accepted the record
func (s *SyncState) HasRemoteID() bool {
	return s.RemoteID != nil && *s.RemoteID != ""
}

// RemoteIDValue returns the remote id or an empty string
func (s *SyncState) RemoteIDValue() string {
	if s.RemoteID == nil {
		return ""
	}
	return *s.RemoteID
}

// ErrorMessage returns the last sync error or an empty string
func (s *SyncState) ErrorMessage() string {
	if s.SyncError == nil {
		return ""
	}
	return *s.SyncError
}

// MarkPending starts a sync attempt. Calling it on a pending record is a no-op.
func (s *SyncState) MarkPending() error {
	if s.Status == SyncStatusPending {
		return nil
	}
	return s.transition(SyncStatusPending)
}

// MarkSynced records a successful remote write. remoteID may be empty only
// when the state already carries one (update path).
func (s *SyncState) MarkSynced(remoteID string, at time.Time) error {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" && !s.HasRemoteID() {
		return ErrSyncedWithoutRemoteID
	}
	if err := s.transition(SyncStatusSynced); err != nil {
		return err
	}
	if remoteID != "" {
		s.RemoteID = &remoteID
	}
	s.LastSyncedAt = &at
	s.LastAttemptAt = &at
	s.SyncError = nil
	s.AttemptCount++
	return nil
}

// MarkFailed records a failed remote write. The remote id is left untouched.
func (s *SyncState) MarkFailed(message string, at time.Time) error {
	if err := s.transition(SyncStatusFailed); err != nil {
		return err
	}
	message = truncateMessage(message, maxSyncErrorLength)
	s.SyncError = &message
	s.LastAttemptAt = &at
	s.AttemptCount++
	return nil
}

// ApplyPulled marks the record synced from a remote listing. It walks through
// pending so the state machine is respected from every starting status.
func (s *SyncState) ApplyPulled(remoteID string, at time.Time) error {
	if s.HasRemoteID() && s.RemoteIDValue() != remoteID {
		return fmt.Errorf("%w: have %s, remote listed %s", ErrRemoteIDConflict, s.RemoteIDValue(), remoteID)
	}
	if err := s.MarkPending(); err != nil {
		return err
	}
	return s.MarkSynced(remoteID, at)
}

// PreviousCreateFailed reports whether a create was attempted before without
// the remote id being recorded. Such records may already exist remotely.
func (s *SyncState) PreviousCreateFailed() bool {
	return !s.HasRemoteID() && s.AttemptCount > 0
}

// Validate checks the state invariants
func (s *SyncState) Validate() error {
	if !s.EntityType.IsValid() {
		return ErrInvalidEntityType
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("integration: invalid sync status %q", s.Status)
	}
	if s.Status == SyncStatusSynced && !s.HasRemoteID() {
		return ErrSyncedWithoutRemoteID
	}
	return nil
}

// truncateMessage cuts message to at most limit bytes on a rune boundary
func truncateMessage(message string, limit int) string {
	if len(message) <= limit {
		return message
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

func (s *SyncState) transition(next SyncStatus) error {
	if !s.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSyncTransition, s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = time.Now()
	return nil
}

// SyncStateFilter narrows ListByStore
type SyncStateFilter struct {
	Statuses []SyncStatus
}

// SyncStateRepository persists sync states. Writes are last-write-wins keyed
// by (entity type, local id); implementations must tolerate concurrent upserts.
type SyncStateRepository interface {
	// Get returns the state of a local record or ErrSyncStateNotFound
	Get(ctx context.Context, entityType EntityType, localID uuid.UUID) (*SyncState, error)
	// UpsertStatus inserts or overwrites the state of a local record.
	// Returns ErrDuplicateRemoteID when the remote id is mapped to another record.
	UpsertStatus(ctx context.Context, state *SyncState) error
	// FindByRemoteID resolves a remote id within a store, or ErrSyncStateNotFound
	FindByRemoteID(ctx context.Context, entityType EntityType, storeID uuid.UUID, remoteID string) (*SyncState, error)
	// ListByStore lists states of a store, optionally filtered by status
	ListByStore(ctx context.Context, entityType EntityType, storeID uuid.UUID, filter SyncStateFilter) ([]*SyncState, error)
	// DeleteByLocalIDs removes states once their records are gone
	DeleteByLocalIDs(ctx context.Context, entityType EntityType, localIDs []uuid.UUID) (int64, error)
	// CountByStatus returns the number of states per status in a store
	CountByStatus(ctx context.Context, entityType EntityType, storeID uuid.UUID) (map[SyncStatus]int64, error)
}
