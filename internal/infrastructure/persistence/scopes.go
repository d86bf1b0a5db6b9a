package persistence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantScope restricts a query to the rows of one organization
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// StoreScope restricts a query to the rows mirrored from one store
func StoreScope(storeID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("store_id = ?", storeID)
	}
}
