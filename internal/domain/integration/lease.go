package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaseKey identifies the execution scope guarded by a lease
type LeaseKey struct {
	StoreID    uuid.UUID
	EntityType EntityType
}

// String returns the storage key of the lease
func (k LeaseKey) String() string {
	return fmt.Sprintf("sync:lease:%s:%s", k.StoreID, k.EntityType)
}

// Lease grants exclusive execution of reconciliation jobs for one key
type Lease struct {
	Key        LeaseKey
	Token      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// LeaseManager hands out leases keyed by (store, entity type).
// Acquire returns ErrLeaseHeld when another owner holds the key.
type LeaseManager interface {
	Acquire(ctx context.Context, key LeaseKey, ttl time.Duration) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
}
