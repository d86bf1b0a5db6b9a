package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/erp/storesync/internal/infrastructure/persistence"
	"github.com/erp/storesync/internal/infrastructure/secrets"
)

const (
	testAPIKey    = "ck_integration"
	testAPISecret = "cs_integration_secret"
)

// Repositories bundles the gorm repositories over one test database
type Repositories struct {
	Organizations *persistence.GormOrganizationRepository
	Stores        *persistence.GormStoreRepository
	Customers     *persistence.GormCustomerRepository
	Orders        *persistence.GormOrderRepository
	SyncStates    *persistence.GormSyncStateRepository
}

// NewRepositories builds every repository; store secrets are sealed with a
// derived test key.
func (tdb *TestDB) NewRepositories() *Repositories {
	tdb.t.Helper()
	cipher, err := secrets.NewDerivedCipher("integration", "storesync-test")
	require.NoError(tdb.t, err)

	return &Repositories{
		Organizations: persistence.NewGormOrganizationRepository(tdb.DB),
		Stores:        persistence.NewGormStoreRepository(tdb.DB, cipher),
		Customers:     persistence.NewGormCustomerRepository(tdb.DB),
		Orders:        persistence.NewGormOrderRepository(tdb.DB),
		SyncStates:    persistence.NewGormSyncStateRepository(tdb.DB),
	}
}

// CreateOrganizationWithStore saves an organization and one store with
// credentials pointing at baseURL.
func (r *Repositories) CreateOrganizationWithStore(t *testing.T, code, baseURL string) (*tenant.Organization, *tenant.Store) {
	t.Helper()
	ctx := context.Background()

	org, err := tenant.NewOrganization(code, "Organization "+code, valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, r.Organizations.Save(ctx, org))

	store, err := tenant.NewStore(org.ID, "Store "+code, baseURL)
	require.NoError(t, err)
	store.SetCredentials(testAPIKey, testAPISecret)
	require.NoError(t, r.Stores.Save(ctx, store))

	return org, store
}

// CreateOrder saves an order with one line per price
func (r *Repositories) CreateOrder(t *testing.T, tenantID, storeID uuid.UUID, number string, cur valueobject.Currency, prices ...string) *trade.Order {
	t.Helper()

	o, err := trade.NewOrder(tenantID, storeID, number, cur)
	require.NoError(t, err)

	lines := make([]trade.ItemInput, 0, len(prices))
	for i, p := range prices {
		sku := number + "-" + string(rune('A'+i))
		lines = append(lines, trade.ItemInput{SKU: sku, Name: sku, Quantity: 1, UnitPrice: decimal.RequireFromString(p)})
	}
	_, err = o.ReplaceItems(lines)
	require.NoError(t, err)
	o.PlacedAt = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Orders.Save(context.Background(), o))
	return o
}
