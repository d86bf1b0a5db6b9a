package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache stores exchange rates under caller built keys
type RateCache interface {
	// Get returns the cached rate. ok is false on a miss.
	Get(ctx context.Context, key string) (rate decimal.Decimal, ok bool, err error)
	Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error
}

const defaultRateKeyPrefix = "fx:"

// RedisRateCache keeps rates as decimal strings in Redis
type RedisRateCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateCache creates a rate cache with an existing Redis client
func NewRedisRateCache(client *redis.Client, keyPrefix string) *RedisRateCache {
	if keyPrefix == "" {
		keyPrefix = defaultRateKeyPrefix
	}
	return &RedisRateCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached rate for key
func (c *RedisRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read cached rate: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		// a corrupt entry is treated as a miss and overwritten by the next Set
		return decimal.Zero, false, nil
	}
	return rate, true, nil
}

// Set stores rate for ttl
func (c *RedisRateCache) Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rate: %w", err)
	}
	return nil
}

type rateEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// InMemoryRateCache is a process local RateCache
type InMemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]rateEntry
	now     func() time.Time
}

// NewInMemoryRateCache creates an empty in-memory rate cache
func NewInMemoryRateCache() *InMemoryRateCache {
	return &InMemoryRateCache{
		entries: make(map[string]rateEntry),
		now:     time.Now,
	}
}

func (c *InMemoryRateCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return decimal.Zero, false, nil
	}
	return e.rate, true, nil
}

func (c *InMemoryRateCache) Set(_ context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// expired entries are swept lazily on write
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = rateEntry{rate: rate, expiresAt: now.Add(ttl)}
	return nil
}

var (
	_ RateCache = (*RedisRateCache)(nil)
	_ RateCache = (*InMemoryRateCache)(nil)
)
