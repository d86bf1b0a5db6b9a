package handler

import (
	"net/http"
	"testing"
	"time"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSyncRouter(svc *MockSyncService) *gin.Engine {
	h := NewSyncHandler(svc)
	r := newTestRouter()
	v1 := r.Group("/api/v1")
	v1.POST("/sync/:storeId/:organizationId", h.StartSync)
	v1.GET("/sync/jobs", h.ListJobs)
	v1.GET("/sync/jobs/:jobId", h.GetJob)

	customers := v1.Group("/customers", EntityScope(integration.EntityTypeCustomer))
	customers.POST("/:id/retry-sync", h.RetrySync)
	customers.GET("/:id/sync-state", h.GetSyncState)
	customers.DELETE("/store/:storeId", h.DeleteAllByStore)
	customers.GET("/store/:storeId/sync-status", h.StoreSyncStatus)

	v1.GET("/records/:entityType/:id/sync-state", h.GetSyncState)
	return r
}

func TestSyncHandler_StartSync(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	storeID, orgID, jobID := uuid.New(), uuid.New(), uuid.New()

	svc.On("StartSync", mock.Anything, appintegration.StartSyncRequest{
		StoreID:        storeID,
		OrganizationID: orgID,
		RequestedBy:    "ops@acme.test",
		Direction:      integration.SyncDirectionPull,
		EntityTypes:    []integration.EntityType{integration.EntityTypeOrder},
	}).Return(&appintegration.JobHandle{ID: jobID}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/sync/"+storeID.String()+"/"+orgID.String(), uuid.Nil,
		map[string]any{"requestedBy": "ops@acme.test", "direction": "pull", "entityTypes": []string{"orders"}})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	data := decodeData[StartSyncResponse](t, w)
	assert.Equal(t, "started", data.Message)
	assert.Equal(t, jobID, data.JobID)
	svc.AssertExpectations(t)
}

func TestSyncHandler_StartSyncErrors(t *testing.T) {
	storeID, orgID := uuid.New(), uuid.New()
	path := "/api/v1/sync/" + storeID.String() + "/" + orgID.String()

	tests := []struct {
		name       string
		path       string
		body       any
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"unknown store", path, map[string]any{"requestedBy": "ops"}, tenant.ErrStoreNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"lease held", path, map[string]any{"requestedBy": "ops"}, shared.ErrSyncInProgress, http.StatusConflict, dto.ErrCodeSyncInProgress},
		{"queue full", path, map[string]any{"requestedBy": "ops"}, appintegration.ErrQueueUnavailable, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable},
		{"missing requester", path, map[string]any{}, nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown field", path, `{"requestedBy":"ops","force":true}`, nil, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"bad direction", path, map[string]any{"requestedBy": "ops", "direction": "sideways"}, nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad store id", "/api/v1/sync/nope/" + orgID.String(), map[string]any{"requestedBy": "ops"}, nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSyncService)
			if tt.serviceErr != nil {
				svc.On("StartSync", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}
			w := doRequest(setupSyncRouter(svc), http.MethodPost, tt.path, uuid.Nil, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
			if tt.serviceErr == nil {
				svc.AssertNotCalled(t, "StartSync", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSyncHandler_GetJob(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	jobID := uuid.New()
	summary := integration.SyncSummary{JobID: jobID, Status: integration.JobStatusSucceeded, Total: 3, Succeeded: 3, StartedAt: time.Now()}
	svc.On("GetJob", jobID).Return(summary, nil)
	missing := uuid.New()
	svc.On("GetJob", missing).Return(integration.SyncSummary{}, shared.NewDomainError(shared.CodeNotFound, "Sync job not found"))

	w := doRequest(r, http.MethodGet, "/api/v1/sync/jobs/"+jobID.String(), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[integration.SyncSummary](t, w)
	assert.Equal(t, jobID, got.JobID)
	assert.Equal(t, 3, got.Succeeded)

	w = doRequest(r, http.MethodGet, "/api/v1/sync/jobs/"+missing.String(), uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncHandler_ListJobs(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	storeID := uuid.New()
	svc.On("ListJobs", storeID).Return([]integration.SyncSummary{{JobID: uuid.New(), StoreID: storeID}})

	w := doRequest(r, http.MethodGet, "/api/v1/sync/jobs?storeId="+storeID.String(), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData[[]integration.SyncSummary](t, w), 1)

	w = doRequest(r, http.MethodGet, "/api/v1/sync/jobs?storeId=bad", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func failedState(t *testing.T, localID, orgID uuid.UUID) *integration.SyncState {
	t.Helper()
	st, err := integration.NewSyncState(integration.EntityTypeCustomer, localID, uuid.New(), orgID)
	require.NoError(t, err)
	require.NoError(t, st.MarkPending())
	require.NoError(t, st.MarkFailed("timeout", time.Now()))
	return st
}

func TestSyncHandler_RetrySync(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	orgID, localID := uuid.New(), uuid.New()

	svc.On("GetSyncState", mock.Anything, integration.EntityTypeCustomer, localID).Return(failedState(t, localID, orgID), nil)
	svc.On("RetrySync", mock.Anything, integration.EntityTypeCustomer, localID).Return(integration.RecordOutcome{
		EntityType: integration.EntityTypeCustomer,
		LocalID:    localID,
		RemoteID:   "r-9",
		Operation:  integration.OperationCreate,
		Status:     integration.SyncStatusSynced,
	}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/customers/"+localID.String()+"/retry-sync", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[appintegration.SyncResult](t, w)
	assert.Equal(t, integration.SyncStatusSynced, res.Status)
	assert.Equal(t, "r-9", res.RemoteID)
}

func TestSyncHandler_RetrySyncPreconditionFailed(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	orgID, localID := uuid.New(), uuid.New()

	svc.On("GetSyncState", mock.Anything, integration.EntityTypeCustomer, localID).Return(failedState(t, localID, orgID), nil)
	svc.On("RetrySync", mock.Anything, integration.EntityTypeCustomer, localID).
		Return(integration.RecordOutcome{}, shared.NewDomainError(shared.CodePreconditionFailed, "Only failed records can be retried"))

	w := doRequest(r, http.MethodPost, "/api/v1/customers/"+localID.String()+"/retry-sync", orgID, nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, dto.ErrCodePreconditionFailed, decodeResponse(t, w).Error.Code)
}

func TestSyncHandler_RetrySyncOtherOrganization(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	localID := uuid.New()

	svc.On("GetSyncState", mock.Anything, integration.EntityTypeCustomer, localID).Return(failedState(t, localID, uuid.New()), nil)

	w := doRequest(r, http.MethodPost, "/api/v1/customers/"+localID.String()+"/retry-sync", uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertNotCalled(t, "RetrySync", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncHandler_GetSyncState(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	orgID, localID := uuid.New(), uuid.New()
	svc.On("GetSyncState", mock.Anything, integration.EntityTypeCustomer, localID).Return(failedState(t, localID, orgID), nil)

	w := doRequest(r, http.MethodGet, "/api/v1/customers/"+localID.String()+"/sync-state", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeData[appintegration.SyncStateResponse](t, w)
	assert.Equal(t, integration.SyncStatusFailed, st.SyncStatus)
	assert.Equal(t, "timeout", st.SyncError)
	assert.Equal(t, localID.String(), st.LocalID)
}

func TestSyncHandler_EntityTypeFromPath(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/records/widgets/"+uuid.NewString()+"/sync-state", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
}

func TestSyncHandler_DeleteAllByStore(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	orgID, storeID := uuid.New(), uuid.New()

	result := &integration.BulkDeleteResult{
		EntityType:   integration.EntityTypeCustomer,
		StoreID:      storeID,
		DeletedCount: 25,
		Total:        25,
		RemoteSync:   integration.RemoteSyncReport{Synced: 19, Failed: 1, Skipped: 5},
	}
	svc.On("DeleteAllByStore", mock.Anything, appintegration.BulkDeleteRequest{
		EntityType:      integration.EntityTypeCustomer,
		StoreID:         storeID,
		OrganizationID:  orgID,
		PropagateRemote: true,
	}).Return(result, nil)

	w := doRequest(r, http.MethodDelete, "/api/v1/customers/store/"+storeID.String(), orgID, map[string]any{"propagateRemote": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[integration.BulkDeleteResult](t, w)
	assert.Equal(t, int64(25), got.DeletedCount)
	assert.Equal(t, 19, got.RemoteSync.Synced)
	svc.AssertExpectations(t)
}

func TestSyncHandler_DeleteAllByStoreWithoutBody(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	storeID := uuid.New()

	svc.On("DeleteAllByStore", mock.Anything, mock.MatchedBy(func(req appintegration.BulkDeleteRequest) bool {
		return req.StoreID == storeID && !req.PropagateRemote
	})).Return(&integration.BulkDeleteResult{StoreID: storeID}, nil)

	w := doRequest(r, http.MethodDelete, "/api/v1/customers/store/"+storeID.String(), uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSyncHandler_StoreSyncStatus(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)
	orgID, storeID := uuid.New(), uuid.New()

	svc.On("StoreSyncStatus", mock.Anything, integration.EntityTypeCustomer, storeID, orgID).Return(&integration.StoreSyncStatus{
		EntityType: integration.EntityTypeCustomer,
		StoreID:    storeID,
		Records:    12,
		Counts: map[integration.SyncStatus]int64{
			integration.SyncStatusSynced:  9,
			integration.SyncStatusPending: 2,
			integration.SyncStatusFailed:  1,
		},
	}, nil)

	w := doRequest(r, http.MethodGet, "/api/v1/customers/store/"+storeID.String()+"/sync-status", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[integration.StoreSyncStatus](t, w)
	assert.Equal(t, 12, got.Records)
	assert.Equal(t, int64(9), got.Counts[integration.SyncStatusSynced])
	assert.Equal(t, int64(1), got.Counts[integration.SyncStatusFailed])
	svc.AssertExpectations(t)
}

func TestSyncHandler_StoreSyncStatusErrors(t *testing.T) {
	svc := new(MockSyncService)
	r := setupSyncRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/customers/store/not-a-uuid/sync-status", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	storeID := uuid.New()
	svc.On("StoreSyncStatus", mock.Anything, integration.EntityTypeCustomer, storeID, mock.Anything).
		Return(nil, tenant.ErrStoreNotFound)
	w = doRequest(r, http.MethodGet, "/api/v1/customers/store/"+storeID.String()+"/sync-status", uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
