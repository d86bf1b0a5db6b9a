package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := preloadItems(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trade.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds an order of a store by its number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, storeID uuid.UUID, orderNumber string) (*trade.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, trade.ErrOrderNotFound
	}
	var model models.OrderModel
	if err := preloadItems(r.db.WithContext(ctx)).
		Scopes(StoreScope(storeID)).
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trade.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListIDsByStore returns the ids of every order of a store
func (r *GormOrderRepository) ListIDsByStore(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Scopes(StoreScope(storeID)).
		Order("placed_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

type revenueRow struct {
	Currency string
	Total    decimal.Decimal
}

// ListRevenueRows returns currency and total of every matching order
func (r *GormOrderRepository) ListRevenueRows(ctx context.Context, filter trade.OrderFilter) ([]trade.RevenueRow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("currency, total").
		Scopes(TenantScope(filter.TenantID))
	if filter.PlacedFrom != nil {
		query = query.Where("placed_at >= ?", *filter.PlacedFrom)
	}
	if filter.PlacedTo != nil {
		query = query.Where("placed_at < ?", *filter.PlacedTo)
	}
	if len(filter.ExcludeStatus) > 0 {
		statuses := make([]string, len(filter.ExcludeStatus))
		for i, s := range filter.ExcludeStatus {
			statuses[i] = string(s)
		}
		query = query.Where("status NOT IN ?", statuses)
	}

	var rows []revenueRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]trade.RevenueRow, len(rows))
	for i, row := range rows {
		out[i] = trade.RevenueRow{Currency: valueobject.Currency(row.Currency), Total: row.Total}
	}
	return out, nil
}

// Save writes the order header and replaces its lines in one transaction
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(model.Items).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.WrapDomainError(shared.CodeAlreadyExists, "An order with this number already exists in the store", err)
	}
	return err
}

// Delete deletes an order and its lines
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return trade.ErrOrderNotFound
		}
		return nil
	})
}

// DeleteByStore removes every order of a store with its lines
func (r *GormOrderRepository) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderIDs := tx.Model(&models.OrderModel{}).Select("id").Where("store_id = ?", storeID)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "store_id = ?", storeID)
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
