package persistence

import (
	"context"
	"testing"

	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopes_FilterByTenantAndStore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	tenantA, tenantB := uuid.New(), uuid.New()
	storeA, storeB := uuid.New(), uuid.New()
	require.NoError(t, repo.Save(ctx, newTestCustomer(t, tenantA, storeA, "one@a.io")))
	require.NoError(t, repo.Save(ctx, newTestCustomer(t, tenantA, storeA, "two@a.io")))
	require.NoError(t, repo.Save(ctx, newTestCustomer(t, tenantB, storeB, "one@b.io")))

	var count int64
	require.NoError(t, db.Model(&models.CustomerModel{}).Scopes(TenantScope(tenantA)).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	require.NoError(t, db.Model(&models.CustomerModel{}).Scopes(StoreScope(storeB)).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.Model(&models.CustomerModel{}).Scopes(TenantScope(tenantA), StoreScope(storeB)).Count(&count).Error)
	assert.Zero(t, count)
}
