package handler

import (
	"context"

	appintegration "github.com/erp/storesync/internal/application/integration"
	tradeapp "github.com/erp/storesync/internal/application/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService is the order application service used by OrderHandler
type OrderService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req tradeapp.CreateOrderRequest) (*tradeapp.OrderResponse, error)
	GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*tradeapp.OrderResponse, error)
	Update(ctx context.Context, tenantID, orderID uuid.UUID, req tradeapp.UpdateOrderRequest) (*tradeapp.OrderResponse, error)
	Delete(ctx context.Context, tenantID, orderID uuid.UUID, propagateRemote bool) (*appintegration.SyncResult, error)
}

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orderService OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create godoc
// @ID           createOrder
// @Summary      Create an order
// @Description  Saves an order locally; totals are computed from the lines and adjustments. With syncNow the order is pushed to its store and the outcome is reported in the sync object; a remote failure does not fail the request.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        request body tradeapp.CreateOrderRequest true "Order"
// @Success      201 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}

	var req tradeapp.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetByID godoc
// @ID           getOrderById
// @Summary      Get order by ID
// @Tags         orders
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Update godoc
// @ID           updateOrder
// @Summary      Update an order
// @Description  Applies the given fields; absent fields are left unchanged and unknown fields are rejected.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.UpdateOrderRequest true "Changes; items replaces every line"
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /orders/{id} [put]
func (h *OrderHandler) Update(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req tradeapp.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), tenantID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete godoc
// @ID           deleteOrder
// @Summary      Delete an order
// @Description  Deletes the order locally; with propagateRemote=true it is deleted on the store too.
// @Tags         orders
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        id path string true "Order ID" format(uuid)
// @Param        propagateRemote query bool false "Delete on the remote platform too"
// @Success      200 {object} APIResponse[DeleteResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [delete]
func (h *OrderHandler) Delete(c *gin.Context) {
	tenantID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization ID is required")
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	propagate, ok := h.propagateFlag(c)
	if !ok {
		return
	}

	result, err := h.orderService.Delete(c.Request.Context(), tenantID, orderID, propagate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DeleteResponse{ID: orderID, Sync: result})
}
