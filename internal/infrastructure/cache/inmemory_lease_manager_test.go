package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaseKey(et integration.EntityType) integration.LeaseKey {
	return integration.LeaseKey{StoreID: uuid.New(), EntityType: et}
}

func TestInMemoryLeaseManager_Acquire(t *testing.T) {
	m := NewInMemoryLeaseManager()
	defer m.Close()

	ctx := context.Background()

	t.Run("grants a free key", func(t *testing.T) {
		key := newLeaseKey(integration.EntityTypeCustomer)

		lease, err := m.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, key, lease.Key)
		assert.NotEmpty(t, lease.Token)
		assert.WithinDuration(t, lease.AcquiredAt.Add(time.Minute), lease.ExpiresAt, time.Millisecond)
	})

	t.Run("rejects a held key", func(t *testing.T) {
		key := newLeaseKey(integration.EntityTypeOrder)

		_, err := m.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)

		_, err = m.Acquire(ctx, key, time.Minute)
		assert.ErrorIs(t, err, integration.ErrLeaseHeld)
	})

	t.Run("keys differ by entity type", func(t *testing.T) {
		storeID := uuid.New()
		_, err := m.Acquire(ctx, integration.LeaseKey{StoreID: storeID, EntityType: integration.EntityTypeCustomer}, time.Minute)
		require.NoError(t, err)
		_, err = m.Acquire(ctx, integration.LeaseKey{StoreID: storeID, EntityType: integration.EntityTypeOrder}, time.Minute)
		assert.NoError(t, err)
	})

	t.Run("expired lease can be taken over", func(t *testing.T) {
		key := newLeaseKey(integration.EntityTypeCustomer)

		first, err := m.Acquire(ctx, key, 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		second, err := m.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		// the previous owner can no longer release it
		assert.ErrorIs(t, m.Release(ctx, first), integration.ErrLeaseNotOwned)
		assert.NoError(t, m.Release(ctx, second))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := m.Acquire(cctx, newLeaseKey(integration.EntityTypeOrder), time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInMemoryLeaseManager_Release(t *testing.T) {
	m := NewInMemoryLeaseManager()
	defer m.Close()

	ctx := context.Background()
	key := newLeaseKey(integration.EntityTypeCustomer)

	lease, err := m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	forged := *lease
	forged.Token = "someone-else"
	assert.ErrorIs(t, m.Release(ctx, &forged), integration.ErrLeaseNotOwned)

	require.NoError(t, m.Release(ctx, lease))
	assert.ErrorIs(t, m.Release(ctx, lease), integration.ErrLeaseNotOwned)
	assert.NoError(t, m.Release(ctx, nil))

	_, err = m.Acquire(ctx, key, time.Minute)
	assert.NoError(t, err, "released key should be free again")
}

func TestInMemoryLeaseManager_Extend(t *testing.T) {
	m := NewInMemoryLeaseManager()
	defer m.Close()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	m.now = func() time.Time { return now }

	lease, err := m.Acquire(ctx, newLeaseKey(integration.EntityTypeOrder), time.Minute)
	require.NoError(t, err)

	now = base.Add(50 * time.Second)
	require.NoError(t, m.Extend(ctx, lease, time.Minute))
	assert.Equal(t, base.Add(110*time.Second), lease.ExpiresAt)

	now = base.Add(3 * time.Minute)
	assert.ErrorIs(t, m.Extend(ctx, lease, time.Minute), integration.ErrLeaseNotOwned)
}

func TestInMemoryLeaseManager_Cleanup(t *testing.T) {
	m := NewInMemoryLeaseManager()
	defer m.Close()

	ctx := context.Background()
	_, err := m.Acquire(ctx, newLeaseKey(integration.EntityTypeCustomer), 5*time.Millisecond)
	require.NoError(t, err)
	_, err = m.Acquire(ctx, newLeaseKey(integration.EntityTypeCustomer), time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, m.Size())

	time.Sleep(10 * time.Millisecond)
	m.cleanup()

	assert.Equal(t, 1, m.Size())
}

func TestInMemoryLeaseManager_ConcurrentAcquire(t *testing.T) {
	m := NewInMemoryLeaseManager()
	defer m.Close()

	ctx := context.Background()
	key := newLeaseKey(integration.EntityTypeCustomer)

	var granted, held atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Acquire(ctx, key, time.Minute)
			switch err {
			case nil:
				granted.Add(1)
			case integration.ErrLeaseHeld:
				held.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
	assert.Equal(t, int32(19), held.Load())
}

func TestInMemoryLeaseManager_CloseIsIdempotent(t *testing.T) {
	m := NewInMemoryLeaseManager()
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
