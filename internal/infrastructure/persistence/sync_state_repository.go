package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten when a state row already exists
var upsertColumns = []string{
	"store_id", "tenant_id", "remote_id", "status", "last_synced_at",
	"last_attempt_at", "sync_error", "attempt_count", "updated_at",
}

// GormSyncStateRepository implements integration.SyncStateRepository using GORM.
// Writes are single-statement upserts keyed by (entity_type, local_id) so
// concurrent writers never fail on the primary key; the last write wins.
type GormSyncStateRepository struct {
	db *gorm.DB
}

// NewGormSyncStateRepository creates a new GormSyncStateRepository
func NewGormSyncStateRepository(db *gorm.DB) *GormSyncStateRepository {
	return &GormSyncStateRepository{db: db}
}

var _ integration.SyncStateRepository = (*GormSyncStateRepository)(nil)

// Get returns the state of a local record
func (r *GormSyncStateRepository) Get(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (*integration.SyncState, error) {
	var model models.SyncStateModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND local_id = ?", entityType.String(), localID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncStateNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertStatus inserts or overwrites the state of a local record
func (r *GormSyncStateRepository) UpsertStatus(ctx context.Context, state *integration.SyncState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	model := models.SyncStateModelFromDomain(state)

	// MySQL's ON DUPLICATE KEY fires for any unique key, so a remote id taken
	// by another record is rejected before the write.
	if model.RemoteID != nil {
		owner, err := r.FindByRemoteID(ctx, state.EntityType, state.StoreID, *model.RemoteID)
		switch {
		case err == nil && owner.LocalID != state.LocalID:
			return fmt.Errorf("%w: %s", integration.ErrDuplicateRemoteID, *model.RemoteID)
		case err != nil && !errors.Is(err, integration.ErrSyncStateNotFound):
			return err
		}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", integration.ErrDuplicateRemoteID, err)
	}
	return err
}

// FindByRemoteID resolves a remote id within a store
func (r *GormSyncStateRepository) FindByRemoteID(ctx context.Context, entityType integration.EntityType, storeID uuid.UUID, remoteID string) (*integration.SyncState, error) {
	var model models.SyncStateModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND store_id = ? AND remote_id = ?", entityType.String(), storeID, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncStateNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByStore lists states of a store, optionally filtered by status
func (r *GormSyncStateRepository) ListByStore(ctx context.Context, entityType integration.EntityType, storeID uuid.UUID, filter integration.SyncStateFilter) ([]*integration.SyncState, error) {
	query := r.db.WithContext(ctx).
		Where("entity_type = ? AND store_id = ?", entityType.String(), storeID)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		query = query.Where("status IN ?", statuses)
	}

	var rows []models.SyncStateModel
	if err := query.Order("updated_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	states := make([]*integration.SyncState, len(rows))
	for i := range rows {
		states[i] = rows[i].ToDomain()
	}
	return states, nil
}

// DeleteByLocalIDs removes the states of deleted records
func (r *GormSyncStateRepository) DeleteByLocalIDs(ctx context.Context, entityType integration.EntityType, localIDs []uuid.UUID) (int64, error) {
	if len(localIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("entity_type = ? AND local_id IN ?", entityType.String(), localIDs).
		Delete(&models.SyncStateModel{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns the number of states per status for a store
func (r *GormSyncStateRepository) CountByStatus(ctx context.Context, entityType integration.EntityType, storeID uuid.UUID) (map[integration.SyncStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SyncStateModel{}).
		Select("status, COUNT(*) AS count").
		Where("entity_type = ? AND store_id = ?", entityType.String(), storeID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[integration.SyncStatus]int64, len(rows))
	for _, row := range rows {
		counts[integration.SyncStatus(row.Status)] = row.Count
	}
	return counts, nil
}
