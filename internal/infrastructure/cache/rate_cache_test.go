package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateCache(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base

	c := NewInMemoryRateCache()
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "org:EUR:USD")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "org:EUR:USD", decimal.RequireFromString("1.0825"), time.Hour))

	rate, ok, err := c.Get(ctx, "org:EUR:USD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.0825", rate.String())

	now = base.Add(time.Hour)
	_, ok, err = c.Get(ctx, "org:EUR:USD")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires at ttl")

	require.NoError(t, c.Set(ctx, "org:GBP:USD", decimal.RequireFromString("1.27"), time.Hour))
	assert.Len(t, c.entries, 1, "expired entries are swept on write")
}
