package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orchestratorFixture struct {
	org       *tenant.Organization
	store     *tenant.Store
	customers *memCustomers
	states    *memSyncStates
	leases    *memLeases
	queue     *goQueue
	events    *recordingPublisher
	client    *MockRemoteClient
	orch      *SyncOrchestrator
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	org, err := tenant.NewOrganization("acme", "Acme", "USD")
	require.NoError(t, err)
	store, err := tenant.NewStore(org.ID, "Main", "https://shop.example.com")
	require.NoError(t, err)
	store.SetCredentials("key", "secret")

	tenancy := &memTenancy{
		orgs:   map[uuid.UUID]*tenant.Organization{org.ID: org},
		stores: map[uuid.UUID]*tenant.Store{store.ID: store},
	}

	f := &orchestratorFixture{
		org:       org,
		store:     store,
		customers: newMemCustomers(),
		states:    newMemSyncStates(),
		leases:    newMemLeases(),
		queue:     &goQueue{},
		events:    &recordingPublisher{},
		client:    new(MockRemoteClient),
	}
	f.orch = NewSyncOrchestrator(OrchestratorDeps{
		Organizations: tenancy,
		Stores:        memStores{tenancy},
		SyncStates:    f.states,
		Clients:       &staticClientFactory{client: f.client},
		Leases:        f.leases,
		Queue:         f.queue,
		Events:        f.events,
		Bindings:      []EntityBinding{NewCustomerBinding(f.customers)},
	}, DefaultOrchestratorConfig(), zap.NewNop())
	return f
}

func (f *orchestratorFixture) addCustomer(t *testing.T, email string) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer(f.org.ID, f.store.ID, email, "Jane", "Doe")
	require.NoError(t, err)
	require.NoError(t, f.customers.Save(context.Background(), c))
	return c
}

func (f *orchestratorFixture) markSynced(t *testing.T, id uuid.UUID, remoteID string) {
	t.Helper()
	st, err := integration.NewSyncState(integration.EntityTypeCustomer, id, f.store.ID, f.org.ID)
	require.NoError(t, err)
	require.NoError(t, st.ApplyPulled(remoteID, time.Now()))
	require.NoError(t, f.states.UpsertStatus(context.Background(), st))
}

func waitJob(t *testing.T, h *JobHandle) integration.SyncSummary {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := h.Wait(ctx)
	require.NoError(t, err)
	return s
}

func TestSyncOrchestrator_StartSyncUnknownStore(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.orch.StartSync(context.Background(), StartSyncRequest{
		StoreID:        uuid.New(),
		OrganizationID: f.org.ID,
		RequestedBy:    "ops",
	})
	assert.ErrorIs(t, err, tenant.ErrStoreNotFound)
	assert.Equal(t, 0, f.queue.count())
	assert.Equal(t, 0, f.states.writes())
}

func TestSyncOrchestrator_StartSyncValidation(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  StartSyncRequest
		want error
	}{
		{"missing requester", StartSyncRequest{StoreID: f.store.ID, OrganizationID: f.org.ID}, shared.ErrValidation},
		{"bad direction", StartSyncRequest{StoreID: f.store.ID, OrganizationID: f.org.ID, RequestedBy: "ops", Direction: "sideways"}, shared.ErrValidation},
		{"unknown organization", StartSyncRequest{StoreID: f.store.ID, OrganizationID: uuid.New(), RequestedBy: "ops"}, tenant.ErrOrganizationNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.StartSync(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("store of another organization", func(t *testing.T) {
		other, err := tenant.NewOrganization("other", "Other", "EUR")
		require.NoError(t, err)
		require.NoError(t, f.orch.orgs.Save(ctx, other))
		_, err = f.orch.StartSync(ctx, StartSyncRequest{StoreID: f.store.ID, OrganizationID: other.ID, RequestedBy: "ops"})
		assert.ErrorIs(t, err, tenant.ErrStoreNotFound)
	})

	t.Run("missing credentials", func(t *testing.T) {
		f.store.SetCredentials("", "")
		defer f.store.SetCredentials("key", "secret")
		_, err := f.orch.StartSync(ctx, StartSyncRequest{StoreID: f.store.ID, OrganizationID: f.org.ID, RequestedBy: "ops"})
		assert.ErrorIs(t, err, tenant.ErrStoreNoCredentials)
	})

	assert.Equal(t, 0, f.queue.count())
}

func TestSyncOrchestrator_StartSyncRunsPullThenPush(t *testing.T) {
	f := newOrchestratorFixture(t)
	local := f.addCustomer(t, "local@example.com")

	f.client.On("List", mock.Anything, integration.EntityTypeCustomer, "").Return(&integration.Page{
		Items: []integration.RemoteItem{remoteCustomer("r-1", "remote@example.com", "Rita")},
	}, nil)
	f.client.On("Create", mock.Anything, integration.EntityTypeCustomer, mock.Anything).
		Return(nil, integration.NewRemoteError("create", integration.EntityTypeCustomer, integration.ErrRemoteRejected, 422, "invalid phone"))

	handle, err := f.orch.StartSync(context.Background(), StartSyncRequest{
		StoreID:        f.store.ID,
		OrganizationID: f.org.ID,
		RequestedBy:    "ops",
	})
	require.NoError(t, err)

	summary := waitJob(t, handle)
	assert.Equal(t, integration.JobStatusPartial, summary.Status)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, local.ID.String(), summary.Errors[0].LocalID)
	assert.False(t, summary.Errors[0].Retryable)

	assert.False(t, f.leases.isHeld(integration.LeaseKey{StoreID: f.store.ID, EntityType: integration.EntityTypeCustomer}))
	assert.Contains(t, f.events.types(), integration.EventTypeSyncJobStarted)
	assert.Contains(t, f.events.types(), integration.EventTypeSyncRecordOutcome)
	assert.Contains(t, f.events.types(), integration.EventTypeSyncJobCompleted)

	got, err := f.orch.GetJob(handle.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.JobStatusPartial, got.Status)
	assert.Len(t, f.orch.ListJobs(f.store.ID), 1)
}

func TestSyncOrchestrator_LeaseHeld(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	key := integration.LeaseKey{StoreID: f.store.ID, EntityType: integration.EntityTypeCustomer}
	lease, err := f.leases.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	t.Run("start sync is rejected", func(t *testing.T) {
		_, err := f.orch.StartSync(ctx, StartSyncRequest{StoreID: f.store.ID, OrganizationID: f.org.ID, RequestedBy: "ops"})
		assert.ErrorIs(t, err, shared.ErrSyncInProgress)
		assert.Equal(t, 0, f.queue.count())
	})

	t.Run("push on write is deferred", func(t *testing.T) {
		c := f.addCustomer(t, "new@example.com")
		out, err := f.orch.PushRecord(ctx, integration.EntityTypeCustomer, c.ID)
		require.NoError(t, err)
		assert.True(t, out.Deferred)
		assert.Equal(t, integration.SyncStatusPending, out.Status)

		st, err := f.states.Get(ctx, integration.EntityTypeCustomer, c.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusPending, st.Status)
		f.client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	require.NoError(t, f.leases.Release(ctx, lease))
}

func TestSyncOrchestrator_QueueFullReleasesLeases(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.queue.err = errors.New("job queue is full")

	_, err := f.orch.StartSync(context.Background(), StartSyncRequest{StoreID: f.store.ID, OrganizationID: f.org.ID, RequestedBy: "ops"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
	assert.False(t, f.leases.isHeld(integration.LeaseKey{StoreID: f.store.ID, EntityType: integration.EntityTypeCustomer}))
	assert.Empty(t, f.orch.ListJobs(uuid.Nil))
}

func TestSyncOrchestrator_RetrySync(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, "jane@example.com")
	f.markSynced(t, c.ID, "r-1")

	_, err := f.orch.RetrySync(ctx, integration.EntityTypeCustomer, c.ID)
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
	f.client.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = f.orch.RetrySync(ctx, "invoice", c.ID)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSyncOrchestrator_DeleteAllByStore(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		c := f.addCustomer(t, fmt.Sprintf("c%02d@example.com", i))
		if i < 20 {
			f.markSynced(t, c.ID, fmt.Sprintf("r-%02d", i))
		}
	}
	f.client.On("Delete", mock.Anything, integration.EntityTypeCustomer, "r-03").
		Return(nil, integration.NewRemoteError("delete", integration.EntityTypeCustomer, integration.ErrRemoteUnavailable, 503, "down"))
	f.client.On("Delete", mock.Anything, integration.EntityTypeCustomer, mock.Anything).
		Return(&integration.RemoteResult{}, nil)

	result, err := f.orch.DeleteAllByStore(ctx, BulkDeleteRequest{
		EntityType:      integration.EntityTypeCustomer,
		StoreID:         f.store.ID,
		PropagateRemote: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 25, result.Total)
	assert.Equal(t, int64(25), result.DeletedCount)
	assert.Equal(t, 19, result.RemoteSync.Synced)
	assert.Equal(t, 1, result.RemoteSync.Failed)
	assert.Equal(t, 5, result.RemoteSync.Skipped)
	require.Len(t, result.RemoteSync.Errors, 1)
	assert.True(t, result.RemoteSync.Errors[0].Retryable)
	f.client.AssertNumberOfCalls(t, "Delete", 20)

	assert.Equal(t, 0, f.customers.count())
	states, err := f.states.ListByStore(ctx, integration.EntityTypeCustomer, f.store.ID, integration.SyncStateFilter{})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "r-03", states[0].RemoteIDValue())
	assert.Equal(t, integration.SyncStatusFailed, states[0].Status)
	assert.Contains(t, states[0].ErrorMessage(), "remote delete failed")
	assert.Contains(t, f.events.types(), integration.EventTypeBulkDeleteDone)
}

func TestSyncOrchestrator_DeleteAllByStoreDropsStateOnTerminalFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, "jane@example.com")
	f.markSynced(t, c.ID, "r-1")

	f.client.On("Delete", mock.Anything, integration.EntityTypeCustomer, "r-1").
		Return(nil, integration.NewRemoteError("delete", integration.EntityTypeCustomer, integration.ErrRemoteAuthFailed, 401, "denied"))

	result, err := f.orch.DeleteAllByStore(ctx, BulkDeleteRequest{
		EntityType:      integration.EntityTypeCustomer,
		StoreID:         f.store.ID,
		PropagateRemote: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemoteSync.Failed)
	assert.False(t, result.RemoteSync.Errors[0].Retryable)

	states, err := f.states.ListByStore(ctx, integration.EntityTypeCustomer, f.store.ID, integration.SyncStateFilter{})
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestSyncOrchestrator_PullSkipsRemoteOrphan(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, "jane@example.com")
	f.markSynced(t, c.ID, "r-1")

	f.client.On("Delete", mock.Anything, integration.EntityTypeCustomer, "r-1").
		Return(nil, integration.NewRemoteError("delete", integration.EntityTypeCustomer, integration.ErrRemoteUnavailable, 503, "down"))
	_, err := f.orch.DeleteAllByStore(ctx, BulkDeleteRequest{
		EntityType:      integration.EntityTypeCustomer,
		StoreID:         f.store.ID,
		PropagateRemote: true,
	})
	require.NoError(t, err)

	f.client.On("List", mock.Anything, integration.EntityTypeCustomer, "").Return(&integration.Page{
		Items: []integration.RemoteItem{remoteCustomer("r-1", "jane@example.com", "Jane")},
	}, nil)
	handle, err := f.orch.StartSync(ctx, StartSyncRequest{
		StoreID:        f.store.ID,
		OrganizationID: f.org.ID,
		RequestedBy:    "ops",
		Direction:      integration.SyncDirectionPull,
	})
	require.NoError(t, err)
	waitJob(t, handle)

	assert.Equal(t, 0, f.customers.count())
}

func TestSyncOrchestrator_DeleteRecord(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, "jane@example.com")
	f.markSynced(t, c.ID, "r-1")

	f.client.On("Delete", mock.Anything, integration.EntityTypeCustomer, "r-1").
		Return(nil, integration.NewRemoteError("delete", integration.EntityTypeCustomer, integration.ErrRemoteAuthFailed, 401, "denied"))

	out, err := f.orch.DeleteRecord(ctx, integration.EntityTypeCustomer, c.ID, true)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.False(t, out.Succeeded())
	assert.Equal(t, 0, f.customers.count())

	_, err = f.orch.GetSyncState(ctx, integration.EntityTypeCustomer, c.ID)
	assert.True(t, IsRecordNotFound(err))
}

func TestSyncOrchestrator_GetSyncStateOfUnsyncedRecord(t *testing.T) {
	f := newOrchestratorFixture(t)
	c := f.addCustomer(t, "jane@example.com")

	st, err := f.orch.GetSyncState(context.Background(), integration.EntityTypeCustomer, c.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusNotSynced, st.Status)
	assert.False(t, st.HasRemoteID())
}

func TestSyncOrchestrator_LocalEditSurvivesPull(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, "jane@example.com")
	f.markSynced(t, c.ID, "r-1")

	c.FirstName = "EditedLocally"
	require.NoError(t, f.customers.Save(ctx, c))
	require.NoError(t, f.orch.MarkChanged(ctx, integration.EntityTypeCustomer, c.ID))

	st, err := f.states.Get(ctx, integration.EntityTypeCustomer, c.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusPending, st.Status)
	assert.Equal(t, "r-1", st.RemoteIDValue())

	pending, err := f.orch.reconcilers[integration.EntityTypeCustomer].PendingIDs(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Contains(t, pending, c.ID)

	f.client.On("List", mock.Anything, integration.EntityTypeCustomer, "").Return(&integration.Page{
		Items: []integration.RemoteItem{remoteCustomer("r-1", "jane@example.com", "Jane")},
	}, nil)

	handle, err := f.orch.StartSync(ctx, StartSyncRequest{
		StoreID:        f.store.ID,
		OrganizationID: f.org.ID,
		RequestedBy:    "ops",
		Direction:      integration.SyncDirectionPull,
	})
	require.NoError(t, err)
	waitJob(t, handle)

	got, err := f.customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "EditedLocally", got.FirstName)
}

func TestSyncOrchestrator_MarkChangedLeavesUnsyncedRecords(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, "jane@example.com")

	require.NoError(t, f.orch.MarkChanged(ctx, integration.EntityTypeCustomer, c.ID))
	assert.Equal(t, 0, f.states.writes())

	assert.ErrorIs(t, f.orch.MarkChanged(ctx, "invoice", c.ID), shared.ErrValidation)
}

func TestSyncOrchestrator_DeleteAllByStoreForeignOrganization(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.addCustomer(t, "jane@example.com")

	_, err := f.orch.DeleteAllByStore(context.Background(), BulkDeleteRequest{
		EntityType:     integration.EntityTypeCustomer,
		StoreID:        f.store.ID,
		OrganizationID: uuid.New(),
	})
	assert.ErrorIs(t, err, tenant.ErrStoreNotFound)
	assert.Equal(t, 1, f.customers.count())
	f.client.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncOrchestrator_StoreSyncStatus(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	a := f.addCustomer(t, "a@example.com")
	b := f.addCustomer(t, "b@example.com")
	f.addCustomer(t, "c@example.com")
	f.markSynced(t, a.ID, "r-a")
	f.markSynced(t, b.ID, "r-b")
	require.NoError(t, f.orch.MarkChanged(ctx, integration.EntityTypeCustomer, b.ID))

	status, err := f.orch.StoreSyncStatus(ctx, integration.EntityTypeCustomer, f.store.ID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.EntityTypeCustomer, status.EntityType)
	assert.Equal(t, 3, status.Records)
	assert.Equal(t, int64(1), status.Counts[integration.SyncStatusSynced])
	assert.Equal(t, int64(1), status.Counts[integration.SyncStatusPending])
	assert.Zero(t, status.Counts[integration.SyncStatusFailed])

	_, err = f.orch.StoreSyncStatus(ctx, integration.EntityTypeCustomer, f.store.ID, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrStoreNotFound)

	_, err = f.orch.StoreSyncStatus(ctx, "invoice", f.store.ID, f.org.ID)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
