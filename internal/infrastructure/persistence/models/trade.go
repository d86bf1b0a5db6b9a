package models

import (
	"time"

	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for trade.Order. Subtotal and Total
// are stored for reporting queries and recomputed on load.
type OrderModel struct {
	TenantAggregateModel
	StoreID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_order_store_number,priority:1"`
	OrderNumber   string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_store_number,priority:2"`
	CustomerEmail string            `gorm:"type:varchar(200);index"`
	Currency      string            `gorm:"type:char(3);not null;index:idx_order_revenue,priority:2"`
	Status        string            `gorm:"type:varchar(20);not null;default:'pending'"`
	TaxTotal      decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingTotal decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountTotal decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Subtotal      decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	PlacedAt      time.Time         `gorm:"not null;index:idx_order_revenue,priority:1"`
	Items         []*OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		StoreID:       m.StoreID,
		OrderNumber:   m.OrderNumber,
		CustomerEmail: m.CustomerEmail,
		Currency:      valueobject.Currency(m.Currency),
		Status:        trade.OrderStatus(m.Status),
		Items:         make([]trade.OrderItem, 0, len(m.Items)),
		TaxTotal:      m.TaxTotal,
		ShippingTotal: m.ShippingTotal,
		DiscountTotal: m.DiscountTotal,
		PlacedAt:      m.PlacedAt,
	}
	m.PopulateTenantAggregateRoot(&o.TenantAggregateRoot)
	for _, it := range m.Items {
		o.Items = append(o.Items, it.ToDomain())
	}
	o.Recalculate()
	return o
}

// OrderModelFromDomain creates a model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		StoreID:       o.StoreID,
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.CustomerEmail,
		Currency:      o.Currency.String(),
		Status:        string(o.Status),
		TaxTotal:      o.TaxTotal,
		ShippingTotal: o.ShippingTotal,
		DiscountTotal: o.DiscountTotal,
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		PlacedAt:      o.PlacedAt,
		Items:         make([]*OrderItemModel, 0, len(o.Items)),
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	for i := range o.Items {
		m.Items = append(m.Items, OrderItemModelFromDomain(&o.Items[i], i))
	}
	return m
}

// OrderItemModel is one order line. Position keeps the caller's line order.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null;default:0"`
	SKU       string          `gorm:"type:varchar(100)"`
	Name      string          `gorm:"type:varchar(300)"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the model to a domain OrderItem
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		SKU:       m.SKU,
		Name:      m.Name,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Total:     m.Total,
	}
}

// OrderItemModelFromDomain creates a model from a domain OrderItem
func OrderItemModelFromDomain(it *trade.OrderItem, position int) *OrderItemModel {
	return &OrderItemModel{
		ID:        it.ID,
		OrderID:   it.OrderID,
		Position:  position,
		SKU:       it.SKU,
		Name:      it.Name,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		Total:     it.Total,
	}
}
