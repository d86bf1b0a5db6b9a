package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	appintegration "github.com/erp/storesync/internal/application/integration"
	partnerapp "github.com/erp/storesync/internal/application/partner"
	tradeapp "github.com/erp/storesync/internal/application/trade"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockSyncService implements SyncService for testing
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) StartSync(ctx context.Context, req appintegration.StartSyncRequest) (*appintegration.JobHandle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.JobHandle), args.Error(1)
}

func (m *MockSyncService) GetJob(id uuid.UUID) (integration.SyncSummary, error) {
	args := m.Called(id)
	return args.Get(0).(integration.SyncSummary), args.Error(1)
}

func (m *MockSyncService) ListJobs(storeID uuid.UUID) []integration.SyncSummary {
	args := m.Called(storeID)
	return args.Get(0).([]integration.SyncSummary)
}

func (m *MockSyncService) RetrySync(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (integration.RecordOutcome, error) {
	args := m.Called(ctx, entityType, localID)
	return args.Get(0).(integration.RecordOutcome), args.Error(1)
}

func (m *MockSyncService) GetSyncState(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (*integration.SyncState, error) {
	args := m.Called(ctx, entityType, localID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncState), args.Error(1)
}

func (m *MockSyncService) DeleteAllByStore(ctx context.Context, req appintegration.BulkDeleteRequest) (*integration.BulkDeleteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.BulkDeleteResult), args.Error(1)
}

func (m *MockSyncService) StoreSyncStatus(ctx context.Context, et integration.EntityType, storeID, orgID uuid.UUID) (*integration.StoreSyncStatus, error) {
	args := m.Called(ctx, et, storeID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.StoreSyncStatus), args.Error(1)
}

// MockCustomerService implements CustomerService for testing
type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Create(ctx context.Context, tenantID uuid.UUID, req partnerapp.CreateCustomerRequest) (*partnerapp.CustomerResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) GetByID(ctx context.Context, tenantID, customerID uuid.UUID) (*partnerapp.CustomerResponse, error) {
	args := m.Called(ctx, tenantID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) Update(ctx context.Context, tenantID, customerID uuid.UUID, req partnerapp.UpdateCustomerRequest) (*partnerapp.CustomerResponse, error) {
	args := m.Called(ctx, tenantID, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) Delete(ctx context.Context, tenantID, customerID uuid.UUID, propagateRemote bool) (*appintegration.SyncResult, error) {
	args := m.Called(ctx, tenantID, customerID, propagateRemote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.SyncResult), args.Error(1)
}

// MockOrderService implements OrderService for testing
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, tenantID uuid.UUID, req tradeapp.CreateOrderRequest) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Update(ctx context.Context, tenantID, orderID uuid.UUID, req tradeapp.UpdateOrderRequest) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, tenantID, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Delete(ctx context.Context, tenantID, orderID uuid.UUID, propagateRemote bool) (*appintegration.SyncResult, error) {
	args := m.Called(ctx, tenantID, orderID, propagateRemote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.SyncResult), args.Error(1)
}

// MockRevenueReporter implements RevenueReporter for testing
type MockRevenueReporter struct {
	mock.Mock
}

func (m *MockRevenueReporter) AggregateRevenue(ctx context.Context, orgID uuid.UUID, target valueobject.Currency, period *report.DateRange) (*report.RevenueAggregate, error) {
	args := m.Called(ctx, orgID, target, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.RevenueAggregate), args.Error(1)
}

// newTestRouter returns an engine with request ids and the organization
// header middleware installed, as in production.
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	cfg := middleware.DefaultTenantConfig()
	cfg.Required = false
	r.Use(middleware.Tenant(cfg))
	return r
}

func doRequest(r http.Handler, method, path string, orgID uuid.UUID, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if orgID != uuid.Nil {
		req.Header.Set(logger.TenantHeader, orgID.String())
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}
