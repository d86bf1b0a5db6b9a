package persistence

import (
	"context"
	"errors"

	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrganizationRepository implements tenant.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

var _ tenant.OrganizationRepository = (*GormOrganizationRepository)(nil)

// FindByID finds an organization by its ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrOrganizationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds an organization by its unique code
func (r *GormOrganizationRepository) FindByCode(ctx context.Context, code string) (*tenant.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrOrganizationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *tenant.Organization) error {
	return r.db.WithContext(ctx).Save(models.OrganizationModelFromDomain(org)).Error
}
