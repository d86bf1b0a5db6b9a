package trade

import (
	"time"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// OrderItemInput represents a line in an order request
type OrderItemInput struct {
	SKU       string          `json:"sku" binding:"max=100"`
	Name      string          `json:"name" binding:"required,min=1,max=200"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"required"`
}

func toItemInputs(items []OrderItemInput) []trade.ItemInput {
	out := make([]trade.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, trade.ItemInput{
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}

// CreateOrderRequest represents a request to create an order. Totals are
// always computed from lines and adjustments.
type CreateOrderRequest struct {
	StoreID       uuid.UUID        `json:"storeId" binding:"required"`
	OrderNumber   string           `json:"orderNumber" binding:"required,min=1,max=64"`
	Currency      string           `json:"currency" binding:"omitempty,len=3"`
	CustomerEmail string           `json:"customerEmail" binding:"omitempty,email,max=200"`
	Status        string           `json:"status" binding:"omitempty"`
	Items         []OrderItemInput `json:"items" binding:"dive"`
	TaxTotal      *decimal.Decimal `json:"taxTotal"`
	ShippingTotal *decimal.Decimal `json:"shippingTotal"`
	DiscountTotal *decimal.Decimal `json:"discountTotal"`
	PlacedAt      *time.Time       `json:"placedAt"`
	SyncNow       bool             `json:"syncNow"`
}

// UpdateOrderRequest represents a request to update an order. Nil fields
// are left unchanged; Items, when set, replaces every line.
type UpdateOrderRequest struct {
	CustomerEmail *string           `json:"customerEmail" binding:"omitempty,email,max=200"`
	Status        *string           `json:"status"`
	Items         *[]OrderItemInput `json:"items"`
	TaxTotal      *decimal.Decimal  `json:"taxTotal"`
	ShippingTotal *decimal.Decimal  `json:"shippingTotal"`
	DiscountTotal *decimal.Decimal  `json:"discountTotal"`
	SyncNow       bool              `json:"syncNow"`
}

// IsEmpty reports whether the request changes nothing
func (r UpdateOrderRequest) IsEmpty() bool {
	return r.CustomerEmail == nil && r.Status == nil && r.Items == nil &&
		r.TaxTotal == nil && r.ShippingTotal == nil && r.DiscountTotal == nil
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            uuid.UUID                  `json:"id"`
	TenantID      uuid.UUID                  `json:"organizationId"`
	StoreID       uuid.UUID                  `json:"storeId"`
	OrderNumber   string                     `json:"orderNumber"`
	CustomerEmail string                     `json:"customerEmail,omitempty"`
	Currency      string                     `json:"currency"`
	Status        string                     `json:"status"`
	Items         []OrderItemResponse        `json:"items"`
	ItemCount     int                        `json:"itemCount"`
	Subtotal      decimal.Decimal            `json:"subtotal"`
	TaxTotal      decimal.Decimal            `json:"taxTotal"`
	ShippingTotal decimal.Decimal            `json:"shippingTotal"`
	DiscountTotal decimal.Decimal            `json:"discountTotal"`
	Total         decimal.Decimal            `json:"total"`
	PlacedAt      time.Time                  `json:"placedAt"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
	Version       int                        `json:"version"`
	Sync          *appintegration.SyncResult `json:"sync,omitempty"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:        it.ID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
		}
	}
	return OrderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		StoreID:       o.StoreID,
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.CustomerEmail,
		Currency:      o.Currency.String(),
		Status:        string(o.Status),
		Items:         items,
		ItemCount:     o.ItemCount(),
		Subtotal:      o.Subtotal,
		TaxTotal:      o.TaxTotal,
		ShippingTotal: o.ShippingTotal,
		DiscountTotal: o.DiscountTotal,
		Total:         o.Total,
		PlacedAt:      o.PlacedAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
}
