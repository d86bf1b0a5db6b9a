package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestBaseHandlerSuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name   string
		call   func(*gin.Context)
		status int
	}{
		{"Success", func(c *gin.Context) { h.Success(c, gin.H{"id": "1"}) }, http.StatusOK},
		{"Created", func(c *gin.Context) { h.Created(c, gin.H{"id": "1"}) }, http.StatusCreated},
		{"Accepted", func(c *gin.Context) { h.Accepted(c, gin.H{"id": "1"}) }, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			tt.call(c)
			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.True(t, resp.Success)
			assert.Nil(t, resp.Error)
		})
	}
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"a", "b"}, 2, 1, 2)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
}

func TestBaseHandlerErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(logger.GinRequestIDKey, "req-123")

	h.BadRequest(c, "Invalid request")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestBaseHandlerErrorWithCode(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.ErrorWithCode(c, dto.ErrCodeSyncInProgress, "busy")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeSyncInProgress, decodeResponse(t, w).Error.Code)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"store not found", tenant.ErrStoreNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"validation", shared.ErrValidation, http.StatusBadRequest, dto.ErrCodeValidation},
		{"invalid email", shared.NewDomainError("INVALID_EMAIL", "bad email"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"sync in progress", shared.ErrSyncInProgress, http.StatusConflict, dto.ErrCodeSyncInProgress},
		{"precondition", shared.ErrPreconditionFailed, http.StatusPreconditionFailed, dto.ErrCodePreconditionFailed},
		{"queue full", appintegration.ErrQueueUnavailable, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable},
		{"store inactive", tenant.ErrStoreInactive, http.StatusUnprocessableEntity, dto.ErrCodeStoreNotReady},
		{"wrapped domain error", fmt.Errorf("context: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"entity type", fmt.Errorf("%w: %q", integration.ErrInvalidEntityType, "widget"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"lease held", integration.ErrLeaseHeld, http.StatusConflict, dto.ErrCodeSyncInProgress},
		{"credentials", integration.ErrCredentialsMissing, http.StatusUnprocessableEntity, dto.ErrCodeStoreNotReady},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, dto.ErrCodeRemoteUnavailable},
		{
			"remote error",
			integration.NewRemoteError("create", integration.EntityTypeOrder, integration.ErrRemoteUnavailable, 503, "down"),
			http.StatusBadGateway,
			dto.ErrCodeRemoteUnavailable,
		},
		{"unknown", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestBaseHandlerHandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandlerHandleErrorHidesAndLogsUnknownErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(logger.GinLoggerKey, zap.New(core))

	h.HandleError(c, fmt.Errorf("dial tcp 10.0.0.7:5432: connection refused"))

	resp := decodeResponse(t, w)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Unhandled request error", logs.All()[0].Message)
}

func TestGetOrganizationID(t *testing.T) {
	c, _ := newTestContext()
	_, err := getOrganizationID(c)
	assert.Error(t, err)

	id := uuid.New()
	c.Set(middleware.OrganizationIDKey, id)
	got, err := getOrganizationID(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestPropagateFlag(t *testing.T) {
	tests := []struct {
		query  string
		want   bool
		wantOK bool
	}{
		{"", false, true},
		{"?propagateRemote=true", true, true},
		{"?propagateRemote=0", false, true},
		{"?propagateRemote=maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()
			c.Request = httptest.NewRequest(http.MethodDelete, "/"+tt.query, nil)

			got, ok := h.propagateFlag(c)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
