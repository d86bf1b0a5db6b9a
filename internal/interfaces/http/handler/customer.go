package handler

import (
	"context"

	appintegration "github.com/erp/storesync/internal/application/integration"
	partnerapp "github.com/erp/storesync/internal/application/partner"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerService is the customer application service used by CustomerHandler
type CustomerService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req partnerapp.CreateCustomerRequest) (*partnerapp.CustomerResponse, error)
	GetByID(ctx context.Context, tenantID, customerID uuid.UUID) (*partnerapp.CustomerResponse, error)
	Update(ctx context.Context, tenantID, customerID uuid.UUID, req partnerapp.UpdateCustomerRequest) (*partnerapp.CustomerResponse, error)
	Delete(ctx context.Context, tenantID, customerID uuid.UUID, propagateRemote bool) (*appintegration.SyncResult, error)
}

// CustomerHandler handles customer-related API endpoints
type CustomerHandler struct {
	BaseHandler
	customerService CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// DeleteResponse reports a local delete and the optional remote delete
// @Description Result of deleting a record
type DeleteResponse struct {
	ID   uuid.UUID                  `json:"id"`
	Sync *appintegration.SyncResult `json:"sync,omitempty"`
}

// Create godoc
// @ID           createCustomer
// @Summary      Create a customer
// @Description  Saves a customer locally. With syncNow the customer is pushed to its store and the outcome is reported in the sync object; a remote failure does not fail the request.
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        request body partnerapp.CreateCustomerRequest true "Customer"
// @Success      201 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}

	var req partnerapp.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, customer)
}

// GetByID godoc
// @ID           getCustomerById
// @Summary      Get customer by ID
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /customers/{id} [get]
func (h *CustomerHandler) GetByID(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}
	customerID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	customer, err := h.customerService.GetByID(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Update godoc
// @ID           updateCustomer
// @Summary      Update a customer
// @Description  Applies the given fields; absent fields are left unchanged and unknown fields are rejected.
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.UpdateCustomerRequest true "Changes"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}
	customerID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req partnerapp.UpdateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.customerService.Update(c.Request.Context(), tenantID, customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Delete godoc
// @ID           deleteCustomer
// @Summary      Delete a customer
// @Description  Deletes the customer locally; with propagateRemote=true it is deleted on the store too.
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        id path string true "Customer ID" format(uuid)
// @Param        propagateRemote query bool false "Delete on the remote platform too"
// @Success      200 {object} APIResponse[DeleteResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}
	customerID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	propagate, ok := h.propagateFlag(c)
	if !ok {
		return
	}

	result, err := h.customerService.Delete(c.Request.Context(), tenantID, customerID, propagate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DeleteResponse{ID: customerID, Sync: result})
}
