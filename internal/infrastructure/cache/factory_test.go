package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
}

func TestFactory_CreateLeaseManager(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		f := NewFactory(config.RedisConfig{})
		defer f.Close()

		m, err := f.CreateLeaseManager(config.LeaseBackendMemory)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLeaseManager{}, m)
		assert.False(t, f.UsesRedis())
	})

	t.Run("redis disabled falls back with warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := NewFactory(config.RedisConfig{}, WithLogger(zap.New(core)))
		defer f.Close()

		m, err := f.CreateLeaseManager(config.LeaseBackendRedis)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLeaseManager{}, m)
		assert.Equal(t, 1, logs.FilterMessageSnippet("falling back to in-memory lease manager").Len())
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		f := NewFactory(unreachableRedis(), WithInMemoryFallback(false), WithPingTimeout(200*time.Millisecond))
		defer f.Close()

		m, err := f.CreateLeaseManager(config.LeaseBackendRedis)
		assert.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "Redis required for sync leases")
	})
}

func TestFactory_CreateRateCache(t *testing.T) {
	f := NewFactory(unreachableRedis(), WithPingTimeout(200*time.Millisecond))
	defer f.Close()

	c := f.CreateRateCache()
	require.IsType(t, &InMemoryRateCache{}, c)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", decimal.RequireFromString("1.1"), time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, decimal.RequireFromString("1.1").Equal(got))
}

func TestFactory_PingWithoutRedis(t *testing.T) {
	f := NewFactory(config.RedisConfig{})
	assert.NoError(t, f.Ping(context.Background()))
	assert.NoError(t, f.Close())
}
