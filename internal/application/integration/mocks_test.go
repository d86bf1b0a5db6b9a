package integration

import (
	"context"
	"sync"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Remote client
// =============================================================================

// MockRemoteClient is a mock implementation of integration.RemoteClient
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) Create(ctx context.Context, et integration.EntityType, p integration.Payload) (*integration.RemoteResult, error) {
	args := m.Called(ctx, et, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.RemoteResult), args.Error(1)
}

func (m *MockRemoteClient) Update(ctx context.Context, et integration.EntityType, remoteID string, p integration.Payload) (*integration.RemoteResult, error) {
	args := m.Called(ctx, et, remoteID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.RemoteResult), args.Error(1)
}

func (m *MockRemoteClient) Delete(ctx context.Context, et integration.EntityType, remoteID string) (*integration.RemoteResult, error) {
	args := m.Called(ctx, et, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.RemoteResult), args.Error(1)
}

func (m *MockRemoteClient) List(ctx context.Context, et integration.EntityType, cursor string) (*integration.Page, error) {
	args := m.Called(ctx, et, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Page), args.Error(1)
}

func (m *MockRemoteClient) FindByExternalRef(ctx context.Context, et integration.EntityType, ref string) (*integration.RemoteResult, error) {
	args := m.Called(ctx, et, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.RemoteResult), args.Error(1)
}

type staticClientFactory struct {
	client integration.RemoteClient
	built  []integration.StoreCredentials
	mu     sync.Mutex
}

func (f *staticClientFactory) NewClient(creds integration.StoreCredentials) (integration.RemoteClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built = append(f.built, creds)
	return f.client, nil
}

// =============================================================================
// Sync states
// =============================================================================

type stateKey struct {
	et integration.EntityType
	id uuid.UUID
}

type memSyncStates struct {
	mu      sync.Mutex
	states  map[stateKey]integration.SyncState
	upserts int
}

func newMemSyncStates() *memSyncStates {
	return &memSyncStates{states: make(map[stateKey]integration.SyncState)}
}

func (m *memSyncStates) Get(_ context.Context, et integration.EntityType, localID uuid.UUID) (*integration.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[stateKey{et, localID}]
	if !ok {
		return nil, integration.ErrSyncStateNotFound
	}
	return &st, nil
}

func (m *memSyncStates) UpsertStatus(_ context.Context, state *integration.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.HasRemoteID() {
		for k, other := range m.states {
			if k.et == state.EntityType && k.id != state.LocalID && other.StoreID == state.StoreID &&
				other.RemoteIDValue() == state.RemoteIDValue() {
				return integration.ErrDuplicateRemoteID
			}
		}
	}
	m.upserts++
	m.states[stateKey{state.EntityType, state.LocalID}] = *state
	return nil
}

func (m *memSyncStates) FindByRemoteID(_ context.Context, et integration.EntityType, storeID uuid.UUID, remoteID string) (*integration.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, st := range m.states {
		if k.et == et && st.StoreID == storeID && st.RemoteIDValue() == remoteID {
			st := st
			return &st, nil
		}
	}
	return nil, integration.ErrSyncStateNotFound
}

func (m *memSyncStates) ListByStore(_ context.Context, et integration.EntityType, storeID uuid.UUID, filter integration.SyncStateFilter) ([]*integration.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*integration.SyncState, 0)
	for k, st := range m.states {
		if k.et != et || st.StoreID != storeID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, st.Status) {
			continue
		}
		st := st
		out = append(out, &st)
	}
	return out, nil
}

func (m *memSyncStates) DeleteByLocalIDs(_ context.Context, et integration.EntityType, ids []uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.states[stateKey{et, id}]; ok {
			delete(m.states, stateKey{et, id})
			n++
		}
	}
	return n, nil
}

func (m *memSyncStates) CountByStatus(_ context.Context, et integration.EntityType, storeID uuid.UUID) (map[integration.SyncStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[integration.SyncStatus]int64)
	for k, st := range m.states {
		if k.et == et && st.StoreID == storeID {
			counts[st.Status]++
		}
	}
	return counts, nil
}

func (m *memSyncStates) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

func containsStatus(list []integration.SyncStatus, s integration.SyncStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// Customers
// =============================================================================

type memCustomers struct {
	mu        sync.Mutex
	customers map[uuid.UUID]partner.Customer
	saves     int
}

func newMemCustomers() *memCustomers {
	return &memCustomers{customers: make(map[uuid.UUID]partner.Customer)}
}

func (m *memCustomers) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, partner.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *memCustomers) FindByEmail(_ context.Context, storeID uuid.UUID, email string) (*partner.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.StoreID == storeID && c.Email == email {
			c := c
			return &c, nil
		}
	}
	return nil, partner.ErrCustomerNotFound
}

func (m *memCustomers) ListIDsByStore(_ context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, c := range m.customers {
		if c.StoreID == storeID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memCustomers) Save(_ context.Context, c *partner.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.customers[c.ID] = *c
	return nil
}

func (m *memCustomers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customers, id)
	return nil
}

func (m *memCustomers) DeleteByStore(_ context.Context, storeID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.customers {
		if c.StoreID == storeID {
			delete(m.customers, id)
			n++
		}
	}
	return n, nil
}

func (m *memCustomers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.customers)
}

// =============================================================================
// Tenancy
// =============================================================================

type memTenancy struct {
	orgs   map[uuid.UUID]*tenant.Organization
	stores map[uuid.UUID]*tenant.Store
}

func (m *memTenancy) FindByID(_ context.Context, id uuid.UUID) (*tenant.Organization, error) {
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, tenant.ErrOrganizationNotFound
}

func (m *memTenancy) Save(_ context.Context, org *tenant.Organization) error {
	m.orgs[org.ID] = org
	return nil
}

type memStores struct{ *memTenancy }

func (m memStores) FindByID(_ context.Context, id uuid.UUID) (*tenant.Store, error) {
	if s, ok := m.stores[id]; ok {
		return s, nil
	}
	return nil, tenant.ErrStoreNotFound
}

func (m memStores) FindByOrganization(_ context.Context, orgID uuid.UUID) ([]tenant.Store, error) {
	out := make([]tenant.Store, 0)
	for _, s := range m.stores {
		if s.OrganizationID == orgID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m memStores) Save(_ context.Context, s *tenant.Store) error {
	m.stores[s.ID] = s
	return nil
}

// =============================================================================
// Leases, queue, events
// =============================================================================

type memLeases struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLeases() *memLeases {
	return &memLeases{held: make(map[string]string)}
}

func (m *memLeases) Acquire(_ context.Context, key integration.LeaseKey, ttl time.Duration) (*integration.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key.String()]; ok {
		return nil, integration.ErrLeaseHeld
	}
	token := uuid.NewString()
	m.held[key.String()] = token
	now := time.Now()
	return &integration.Lease{Key: key, Token: token, AcquiredAt: now, ExpiresAt: now.Add(ttl)}, nil
}

func (m *memLeases) Release(_ context.Context, l *integration.Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[l.Key.String()] != l.Token {
		return integration.ErrLeaseNotOwned
	}
	delete(m.held, l.Key.String())
	return nil
}

func (m *memLeases) isHeld(key integration.LeaseKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key.String()]
	return ok
}

type goQueue struct {
	mu        sync.Mutex
	submitted int
	err       error
}

func (q *goQueue) Submit(_ string, run func(ctx context.Context)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.submitted++
	go run(context.Background())
	return nil
}

func (q *goQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}
