package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease key only when it still carries the caller's token.
// A lease that expired and was taken by another owner is left untouched.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry of a lease still owned by the caller
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLeaseManager implements integration.LeaseManager on top of Redis.
// Leases are shared by every process connected to the same Redis database.
type RedisLeaseManager struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisLeaseManager creates a lease manager using an existing Redis client
func NewRedisLeaseManager(client *redis.Client) *RedisLeaseManager {
	return &RedisLeaseManager{
		client: client,
		now:    time.Now,
	}
}

// Acquire takes the lease for key with SET NX PX.
// Returns integration.ErrLeaseHeld if another owner holds it.
func (m *RedisLeaseManager) Acquire(ctx context.Context, key integration.LeaseKey, ttl time.Duration) (*integration.Lease, error) {
	token := uuid.NewString()
	now := m.now()

	ok, err := m.client.SetNX(ctx, key.String(), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, integration.ErrLeaseHeld
	}

	return &integration.Lease{
		Key:        key,
		Token:      token,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// Release drops the lease if the caller still owns it
func (m *RedisLeaseManager) Release(ctx context.Context, lease *integration.Lease) error {
	if lease == nil {
		return nil
	}
	deleted, err := releaseScript.Run(ctx, m.client, []string{lease.Key.String()}, lease.Token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", lease.Key, err)
	}
	if deleted == 0 {
		return integration.ErrLeaseNotOwned
	}
	return nil
}

// Extend renews an owned lease for another ttl
func (m *RedisLeaseManager) Extend(ctx context.Context, lease *integration.Lease, ttl time.Duration) error {
	ok, err := extendScript.Run(ctx, m.client, []string{lease.Key.String()}, lease.Token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend lease %s: %w", lease.Key, err)
	}
	if ok == 0 {
		return integration.ErrLeaseNotOwned
	}
	lease.ExpiresAt = m.now().Add(ttl)
	return nil
}

// Ensure RedisLeaseManager implements LeaseManager
var _ integration.LeaseManager = (*RedisLeaseManager)(nil)
