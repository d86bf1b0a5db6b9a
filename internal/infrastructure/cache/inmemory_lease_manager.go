package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
)

type leaseEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLeaseManager implements integration.LeaseManager with a process local map.
// This is suitable for single-instance deployments and testing
type InMemoryLeaseManager struct {
	mu        sync.Mutex
	leases    map[string]leaseEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryLeaseManager creates a new in-memory lease manager.
// It starts a background goroutine dropping expired leases.
func NewInMemoryLeaseManager() *InMemoryLeaseManager {
	m := &InMemoryLeaseManager{
		leases:   make(map[string]leaseEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// Acquire takes the lease for key unless an unexpired owner holds it
func (m *InMemoryLeaseManager) Acquire(ctx context.Context, key integration.LeaseKey, ttl time.Duration) (*integration.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, exists := m.leases[key.String()]; exists && now.Before(e.expiresAt) {
		return nil, integration.ErrLeaseHeld
	}

	lease := &integration.Lease{
		Key:        key,
		Token:      uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	m.leases[key.String()] = leaseEntry{token: lease.Token, expiresAt: lease.ExpiresAt}
	return lease, nil
}

// Release drops the lease if the caller still owns it
func (m *InMemoryLeaseManager) Release(_ context.Context, lease *integration.Lease) error {
	if lease == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.leases[lease.Key.String()]
	if !exists || e.token != lease.Token {
		return integration.ErrLeaseNotOwned
	}
	delete(m.leases, lease.Key.String())
	return nil
}

// Extend renews an owned lease for another ttl
func (m *InMemoryLeaseManager) Extend(_ context.Context, lease *integration.Lease, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.leases[lease.Key.String()]
	now := m.now()
	if !exists || e.token != lease.Token || !now.Before(e.expiresAt) {
		return integration.ErrLeaseNotOwned
	}
	e.expiresAt = now.Add(ttl)
	m.leases[lease.Key.String()] = e
	lease.ExpiresAt = e.expiresAt
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times
func (m *InMemoryLeaseManager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
	return nil
}

func (m *InMemoryLeaseManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *InMemoryLeaseManager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.leases {
		if !now.Before(e.expiresAt) {
			delete(m.leases, key)
		}
	}
}

// Size returns the number of tracked leases, expired ones included
func (m *InMemoryLeaseManager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leases)
}

var _ integration.LeaseManager = (*InMemoryLeaseManager)(nil)
