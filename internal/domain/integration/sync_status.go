package integration

import (
	"fmt"
	"strings"
)

// EntityType identifies a kind of syncable record
type EntityType string

const (
	EntityTypeCustomer EntityType = "customer"
	EntityTypeOrder    EntityType = "order"
)

// AllEntityTypes returns entity types in the order a full sync processes them.
// Customers go first so orders can reference them.
func AllEntityTypes() []EntityType {
	return []EntityType{EntityTypeCustomer, EntityTypeOrder}
}

// IsValid returns true if the entity type is known
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeCustomer, EntityTypeOrder:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (t EntityType) String() string {
	return string(t)
}

// Plural returns the collection name used in URLs and remote resources
func (t EntityType) Plural() string {
	return string(t) + "s"
}

// ParseEntityType accepts singular or plural names ("order", "orders")
func ParseEntityType(s string) (EntityType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	t := EntityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
	return t, nil
}

// SyncStatus is the per-record synchronization state
type SyncStatus string

const (
	SyncStatusNotSynced SyncStatus = "not_synced"
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusFailed    SyncStatus = "failed"
)

// syncTransitions lists the legal moves. There is no absorbing state:
// both synced and failed are re-entered through pending.
var syncTransitions = map[SyncStatus][]SyncStatus{
	SyncStatusNotSynced: {SyncStatusPending},
	SyncStatusPending:   {SyncStatusSynced, SyncStatusFailed},
	SyncStatusFailed:    {SyncStatusPending},
	SyncStatusSynced:    {SyncStatusPending},
}

// IsValid returns true if the status is known
func (s SyncStatus) IsValid() bool {
	_, ok := syncTransitions[s]
	return ok
}

// String returns the string representation
func (s SyncStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can move to next
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	for _, allowed := range syncTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NeedsPush returns true for records a bulk push picks up
func (s SyncStatus) NeedsPush() bool {
	return s == SyncStatusNotSynced || s == SyncStatusPending
}
