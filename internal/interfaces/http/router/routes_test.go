package router

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/handler"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) StartSync(ctx context.Context, req appintegration.StartSyncRequest) (*appintegration.JobHandle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.JobHandle), args.Error(1)
}

func (m *mockSyncService) GetJob(id uuid.UUID) (integration.SyncSummary, error) {
	args := m.Called(id)
	return args.Get(0).(integration.SyncSummary), args.Error(1)
}

func (m *mockSyncService) ListJobs(storeID uuid.UUID) []integration.SyncSummary {
	return m.Called(storeID).Get(0).([]integration.SyncSummary)
}

func (m *mockSyncService) RetrySync(ctx context.Context, et integration.EntityType, localID uuid.UUID) (integration.RecordOutcome, error) {
	args := m.Called(ctx, et, localID)
	return args.Get(0).(integration.RecordOutcome), args.Error(1)
}

func (m *mockSyncService) GetSyncState(ctx context.Context, et integration.EntityType, localID uuid.UUID) (*integration.SyncState, error) {
	args := m.Called(ctx, et, localID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncState), args.Error(1)
}

func (m *mockSyncService) DeleteAllByStore(ctx context.Context, req appintegration.BulkDeleteRequest) (*integration.BulkDeleteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.BulkDeleteResult), args.Error(1)
}

func (m *mockSyncService) StoreSyncStatus(ctx context.Context, et integration.EntityType, storeID, orgID uuid.UUID) (*integration.StoreSyncStatus, error) {
	args := m.Called(ctx, et, storeID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.StoreSyncStatus), args.Error(1)
}

func testEngine(t *testing.T, httpCfg config.HTTPConfig, svc *mockSyncService) *Engine {
	t.Helper()
	if httpCfg.MaxBodySize == 0 {
		httpCfg.MaxBodySize = 1 << 20
	}
	e := NewEngine(EngineConfig{
		HTTP:      httpCfg,
		Tracing:   middleware.TracingConfig{Enabled: false},
		Profiling: middleware.ProfilingConfig{Enabled: false},
	}, Handlers{
		Sync:     handler.NewSyncHandler(svc),
		Customer: handler.NewCustomerHandler(nil),
		Order:    handler.NewOrderHandler(nil),
		Health:   handler.NewHealthHandler("test", time.Second),
	})
	t.Cleanup(e.Close)
	return e
}

func serve(e *Engine, method, path string, orgID uuid.UUID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if orgID != uuid.Nil {
		req.Header.Set(logger.TenantHeader, orgID.String())
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestNewEngine_Health(t *testing.T) {
	e := testEngine(t, config.HTTPConfig{}, &mockSyncService{})

	w := serve(e, http.MethodGet, "/health", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestNewEngine_SwaggerDisabled(t *testing.T) {
	e := testEngine(t, config.HTTPConfig{}, &mockSyncService{})

	w := serve(e, http.MethodGet, "/swagger/index.html", uuid.Nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewEngine_EntityRoutesRequireOrganization(t *testing.T) {
	e := testEngine(t, config.HTTPConfig{}, &mockSyncService{})

	w := serve(e, http.MethodGet, "/api/v1/customers/"+uuid.NewString(), uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(e, http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/sync-state", uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewEngine_RecordRoutesCarryEntityType(t *testing.T) {
	svc := &mockSyncService{}
	e := testEngine(t, config.HTTPConfig{}, svc)
	orgID, storeID := uuid.New(), uuid.New()

	customerID, orderID := uuid.New(), uuid.New()
	customerState, err := integration.NewSyncState(integration.EntityTypeCustomer, customerID, storeID, orgID)
	require.NoError(t, err)
	orderState, err := integration.NewSyncState(integration.EntityTypeOrder, orderID, storeID, orgID)
	require.NoError(t, err)

	svc.On("GetSyncState", mock.Anything, integration.EntityTypeCustomer, customerID).Return(customerState, nil)
	svc.On("GetSyncState", mock.Anything, integration.EntityTypeOrder, orderID).Return(orderState, nil)

	w := serve(e, http.MethodGet, "/api/v1/customers/"+customerID.String()+"/sync-state", orgID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(e, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/sync-state", orgID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.On("DeleteAllByStore", mock.Anything, appintegration.BulkDeleteRequest{
		EntityType:     integration.EntityTypeOrder,
		StoreID:        storeID,
		OrganizationID: orgID,
	}).Return(&integration.BulkDeleteResult{EntityType: integration.EntityTypeOrder, StoreID: storeID}, nil)

	w = serve(e, http.MethodDelete, "/api/v1/orders/store/"+storeID.String(), orgID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.On("StoreSyncStatus", mock.Anything, integration.EntityTypeCustomer, storeID, orgID).
		Return(&integration.StoreSyncStatus{EntityType: integration.EntityTypeCustomer, StoreID: storeID}, nil)
	w = serve(e, http.MethodGet, "/api/v1/customers/store/"+storeID.String()+"/sync-status", orgID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestNewEngine_SyncTriggerRateLimitedPerStore(t *testing.T) {
	svc := &mockSyncService{}
	e := testEngine(t, config.HTTPConfig{SyncRateLimit: 1, SyncRateWindow: time.Minute}, svc)

	storeA, storeB, orgID := uuid.New(), uuid.New(), uuid.New()
	svc.On("StartSync", mock.Anything, mock.Anything).
		Return(&appintegration.JobHandle{ID: uuid.New()}, nil)

	body := `{"requestedBy":"ops@acme.test"}`
	w := serve(e, http.MethodPost, "/api/v1/sync/"+storeA.String()+"/"+orgID.String(), uuid.Nil, body)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = serve(e, http.MethodPost, "/api/v1/sync/"+storeA.String()+"/"+orgID.String(), uuid.Nil, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = serve(e, http.MethodPost, "/api/v1/sync/"+storeB.String()+"/"+orgID.String(), uuid.Nil, body)
	assert.Equal(t, http.StatusAccepted, w.Code)

	svc.AssertNumberOfCalls(t, "StartSync", 2)
}

func TestNewEngine_SyncJobsRoutes(t *testing.T) {
	svc := &mockSyncService{}
	e := testEngine(t, config.HTTPConfig{}, svc)

	jobID := uuid.New()
	svc.On("ListJobs", uuid.Nil).Return([]integration.SyncSummary{})
	svc.On("GetJob", jobID).Return(integration.SyncSummary{}, errors.New("boom"))

	w := serve(e, http.MethodGet, "/api/v1/sync/jobs", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(e, http.MethodGet, "/api/v1/sync/jobs/"+jobID.String(), uuid.Nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewEngine_UnknownOrganizationRejected(t *testing.T) {
	known := uuid.New()
	e := NewEngine(EngineConfig{
		HTTP: config.HTTPConfig{MaxBodySize: 1 << 20},
		Organizations: middleware.OrganizationValidatorFunc(func(_ context.Context, id uuid.UUID) error {
			if id != known {
				return errors.New("unknown")
			}
			return nil
		}),
	}, Handlers{Customer: handler.NewCustomerHandler(nil)})
	t.Cleanup(e.Close)

	w := serve(e, http.MethodGet, "/api/v1/customers/"+uuid.NewString(), uuid.New(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
