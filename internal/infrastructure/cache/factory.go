package cache

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory creates lease managers and rate caches based on configuration.
// All Redis backed stores share one client.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	pingTimeout           time.Duration

	mu      sync.Mutex
	client  *redis.Client
	closers []io.Closer
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithPingTimeout bounds the connectivity check done on first use of Redis
func WithPingTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.pingTimeout = d
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		pingTimeout:           5 * time.Second,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// RedisClient returns the shared client, connecting on first use
func (f *Factory) RedisClient() (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.client, nil
	}
	if !f.redisConfig.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), f.pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f.client = client
	return client, nil
}

// CreateLeaseManager creates the lease manager for backend ("redis" or "memory").
// A redis backend falls back to memory when Redis is unreachable and fallback is allowed.
func (f *Factory) CreateLeaseManager(backend string) (integration.LeaseManager, error) {
	if backend == config.LeaseBackendRedis {
		client, err := f.RedisClient()
		if err == nil {
			f.logger.Info("using Redis lease manager", zap.String("addr", f.redisConfig.Addr()))
			return NewRedisLeaseManager(client), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for sync leases but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory lease manager. "+
			"Concurrent jobs on other instances will not be excluded.",
			zap.Error(err),
		)
	}

	m := NewInMemoryLeaseManager()
	f.track(m)
	return m, nil
}

// CreateRateCache creates a Redis rate cache when Redis is reachable, in-memory otherwise.
// Rate caching is an optimization, so it always falls back.
func (f *Factory) CreateRateCache() RateCache {
	if f.redisConfig.Enabled {
		client, err := f.RedisClient()
		if err == nil {
			return NewRedisRateCache(client, "")
		}
		f.logger.Warn("Redis unavailable, caching exchange rates in memory", zap.Error(err))
	}
	return NewInMemoryRateCache()
}

// Ping checks Redis connectivity. It is a no-op when Redis is not in use.
func (f *Factory) Ping(ctx context.Context) error {
	f.mu.Lock()
	client := f.client
	f.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// UsesRedis reports whether a Redis client has been opened
func (f *Factory) UsesRedis() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client != nil
}

// Close releases the Redis client and stops in-memory stores
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	if f.client != nil {
		if err := f.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.client = nil
	}
	return firstErr
}

func (f *Factory) track(c io.Closer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closers = append(f.closers, c)
}
