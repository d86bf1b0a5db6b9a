package trade

import (
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeOrder is the aggregate type constant
const AggregateTypeOrder = "Order"

// EventTypeOrderCreated is raised when a new order is created locally
const EventTypeOrderCreated = "OrderCreated"

// OrderCreatedEvent is published when a new order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	StoreID     uuid.UUID `json:"store_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		StoreID:         o.StoreID,
		OrderNumber:     o.OrderNumber,
	}
}
