package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SecretSealer encrypts store API secrets at rest
type SecretSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// GormStoreRepository implements tenant.StoreRepository using GORM.
// API secrets are sealed before they are written and opened after reads.
type GormStoreRepository struct {
	db     *gorm.DB
	sealer SecretSealer
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB, sealer SecretSealer) *GormStoreRepository {
	return &GormStoreRepository{db: db, sealer: sealer}
}

var _ tenant.StoreRepository = (*GormStoreRepository)(nil)

// FindByID finds a store by its ID
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrStoreNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindByOrganization lists the stores of an organization ordered by name
func (r *GormStoreRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) ([]tenant.Store, error) {
	var rows []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	stores := make([]tenant.Store, 0, len(rows))
	for i := range rows {
		s, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		stores = append(stores, *s)
	}
	return stores, nil
}

// Save creates or updates a store
func (r *GormStoreRepository) Save(ctx context.Context, store *tenant.Store) error {
	model := models.StoreModelFromDomain(store)
	if model.APISecret != "" {
		sealed, err := r.sealer.Seal(model.APISecret)
		if err != nil {
			return fmt.Errorf("seal store secret: %w", err)
		}
		model.APISecret = sealed
	}
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *GormStoreRepository) toDomain(model *models.StoreModel) (*tenant.Store, error) {
	store := model.ToDomain()
	if store.APISecret != "" {
		secret, err := r.sealer.Open(store.APISecret)
		if err != nil {
			return nil, fmt.Errorf("open secret of store %s: %w", store.ID, err)
		}
		store.APISecret = secret
	}
	return store, nil
}
