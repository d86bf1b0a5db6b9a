package tenant

import (
	"errors"
	"testing"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization(t *testing.T) {
	org, err := NewOrganization("acme", "Acme Inc", "")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DefaultCurrency, org.ReportingCurrency)
	assert.True(t, org.Active)

	_, err = NewOrganization("", "Acme", valueobject.EUR)
	assert.Error(t, err)
}

func TestStore_Credentials(t *testing.T) {
	orgID := uuid.New()
	store, err := NewStore(orgID, "Main shop", "https://shop.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", store.BaseURL)
	assert.True(t, store.BelongsTo(orgID))

	t.Run("missing credentials", func(t *testing.T) {
		_, err := store.Credentials()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStoreNoCredentials))
		assert.True(t, errors.Is(err, integration.ErrCredentialsMissing))
	})

	t.Run("complete credentials", func(t *testing.T) {
		store.SetCredentials("key", "secret")
		creds, err := store.Credentials()
		require.NoError(t, err)
		assert.Equal(t, store.ID, creds.StoreID)
		assert.Equal(t, "key", creds.APIKey)
	})

	t.Run("bad base url", func(t *testing.T) {
		s, err := NewStore(orgID, "Broken", "not a url")
		require.NoError(t, err)
		s.SetCredentials("key", "secret")
		_, err = s.Credentials()
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, ErrStoreNoCredentials.Code, de.Code)
	})
}
