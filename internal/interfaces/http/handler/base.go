// Package handler contains the HTTP handlers of the storesync API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getOrganizationID returns the organization resolved by the tenant middleware
func getOrganizationID(c *gin.Context) (uuid.UUID, error) {
	if id := middleware.GetOrganizationID(c); id != uuid.Nil {
		return id, nil
	}
	return uuid.Nil, errors.New("organization ID not found in context")
}

// parseUUIDParam parses a path parameter as a UUID
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindJSON decodes the request body strictly and writes the error response
// itself when decoding or validation fails.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := middleware.BindJSONStrict(c, obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError converts service errors to HTTP responses.
//
// Domain errors keep their code and message. Integration sentinels that
// escape the services are mapped here; anything else is logged and reported
// as an internal error without leaking its text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := shared.AsDomainError(err); ok {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	switch {
	case errors.Is(err, integration.ErrInvalidEntityType):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Unknown entity type")
		return
	case errors.Is(err, integration.ErrLeaseHeld):
		h.Error(c, http.StatusConflict, dto.ErrCodeSyncInProgress, shared.ErrSyncInProgress.Message)
		return
	case errors.Is(err, integration.ErrSyncStateNotFound):
		h.NotFound(c, "Sync state not found")
		return
	case errors.Is(err, integration.ErrCredentialsMissing):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeStoreNotReady, "Store credentials are not configured")
		return
	case errors.Is(err, context.DeadlineExceeded):
		h.Error(c, http.StatusGatewayTimeout, dto.ErrCodeRemoteUnavailable, "The remote platform did not answer in time")
		return
	}

	if remoteErr, ok := integration.AsRemoteError(err); ok {
		h.Error(c, http.StatusBadGateway, dto.ErrCodeRemoteUnavailable, remoteErr.Error())
		return
	}

	logger.GetGinLogger(c).Error("Unhandled request error",
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	h.InternalError(c, "An unexpected error occurred")
}

// propagateFlag parses the propagateRemote query parameter, defaulting to false
func (h *BaseHandler) propagateFlag(c *gin.Context) (bool, bool) {
	raw := c.Query("propagateRemote")
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		h.BadRequest(c, "propagateRemote must be a boolean")
		return false, false
	}
	return v, true
}
