package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements partner.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrCustomerNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a customer of a store by email
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, storeID uuid.UUID, email string) (*partner.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, partner.ErrCustomerNotFound
	}
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Scopes(StoreScope(storeID)).
		Where("email = ?", email).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrCustomerNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListIDsByStore returns the ids of every customer attached to a store
func (r *GormCustomerRepository) ListIDsByStore(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Scopes(StoreScope(storeID)).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	err := r.db.WithContext(ctx).Save(models.CustomerModelFromDomain(customer)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.WrapDomainError(shared.CodeAlreadyExists, "A customer with this email already exists in the store", err)
	}
	return err
}

// Delete deletes a customer
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CustomerModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return partner.ErrCustomerNotFound
	}
	return nil
}

// DeleteByStore removes every customer of a store
func (r *GormCustomerRepository) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.CustomerModel{}, "store_id = ?", storeID)
	return result.RowsAffected, result.Error
}
