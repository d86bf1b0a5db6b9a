package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseSealer is a reversible stand-in for the real cipher
type reverseSealer struct{}

func (reverseSealer) Seal(s string) (string, error) { return "sealed:" + reverse(s), nil }

func (reverseSealer) Open(s string) (string, error) {
	if !strings.HasPrefix(s, "sealed:") {
		return "", errors.New("not sealed")
	}
	return reverse(strings.TrimPrefix(s, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestGormStoreRepository_SealsSecret(t *testing.T) {
	db := setupTestDB(t)
	orgs := NewGormOrganizationRepository(db)
	stores := NewGormStoreRepository(db, reverseSealer{})
	ctx := context.Background()

	org, err := tenant.NewOrganization("acme", "Acme", valueobject.EUR)
	require.NoError(t, err)
	require.NoError(t, orgs.Save(ctx, org))

	store, err := tenant.NewStore(org.ID, "Main shop", "https://shop.example.com/")
	require.NoError(t, err)
	store.SetCredentials("key-1", "s3cret")
	require.NoError(t, stores.Save(ctx, store))

	var raw string
	require.NoError(t, db.Table("stores").Select("api_secret").Where("id = ?", store.ID).Scan(&raw).Error)
	assert.Equal(t, "sealed:terc3s", raw)

	found, err := stores.FindByID(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", found.APISecret)
	assert.Equal(t, "https://shop.example.com", found.BaseURL)

	list, err := stores.FindByOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s3cret", list[0].APISecret)

	_, err = stores.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrStoreNotFound)

	gotOrg, err := orgs.FindByCode(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, valueobject.EUR, gotOrg.ReportingCurrency)
	_, err = orgs.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrOrganizationNotFound)
}

func TestGormStoreRepository_CorruptSecret(t *testing.T) {
	db := setupTestDB(t)
	stores := NewGormStoreRepository(db, reverseSealer{})
	ctx := context.Background()

	store, err := tenant.NewStore(uuid.New(), "Shop", "https://x.example.com")
	require.NoError(t, err)
	require.NoError(t, stores.Save(ctx, store))
	require.NoError(t, db.Table("stores").Where("id = ?", store.ID).Update("api_secret", "plain").Error)

	_, err = stores.FindByID(ctx, store.ID)
	assert.Error(t, err)
}
