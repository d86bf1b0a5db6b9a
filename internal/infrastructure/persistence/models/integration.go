package models

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncStateModel is the persistence model for integration.SyncState.
// The primary key is (entity_type, local_id); a remote id maps to at most
// one local record per store, which the partial unique index enforces.
type SyncStateModel struct {
	EntityType    string     `gorm:"type:varchar(20);primaryKey;uniqueIndex:idx_sync_state_remote,priority:2,where:remote_id IS NOT NULL"`
	LocalID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_state_store_status,priority:1;uniqueIndex:idx_sync_state_remote,priority:1"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	RemoteID      *string    `gorm:"type:varchar(100);uniqueIndex:idx_sync_state_remote,priority:3"`
	Status        string     `gorm:"type:varchar(20);not null;default:'not_synced';index:idx_sync_state_store_status,priority:2"`
	LastSyncedAt  *time.Time `gorm:""`
	LastAttemptAt *time.Time `gorm:""`
	SyncError     *string    `gorm:"type:text"`
	AttemptCount  int        `gorm:"not null;default:0"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncStateModel) TableName() string {
	return "sync_states"
}

// ToDomain converts the model to a domain SyncState
func (m *SyncStateModel) ToDomain() *integration.SyncState {
	return &integration.SyncState{
		EntityType:    integration.EntityType(m.EntityType),
		LocalID:       m.LocalID,
		StoreID:       m.StoreID,
		TenantID:      m.TenantID,
		RemoteID:      m.RemoteID,
		Status:        integration.SyncStatus(m.Status),
		LastSyncedAt:  m.LastSyncedAt,
		LastAttemptAt: m.LastAttemptAt,
		SyncError:     m.SyncError,
		AttemptCount:  m.AttemptCount,
		UpdatedAt:     m.UpdatedAt,
	}
}

// SyncStateModelFromDomain creates a model from a domain SyncState. An empty
// remote id is stored as NULL so the unique index ignores it.
func SyncStateModelFromDomain(s *integration.SyncState) *SyncStateModel {
	m := &SyncStateModel{
		EntityType:    s.EntityType.String(),
		LocalID:       s.LocalID,
		StoreID:       s.StoreID,
		TenantID:      s.TenantID,
		Status:        s.Status.String(),
		LastSyncedAt:  s.LastSyncedAt,
		LastAttemptAt: s.LastAttemptAt,
		SyncError:     s.SyncError,
		AttemptCount:  s.AttemptCount,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.HasRemoteID() {
		id := s.RemoteIDValue()
		m.RemoteID = &id
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	return m
}
