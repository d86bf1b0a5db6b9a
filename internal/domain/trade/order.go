package trade

import (
	"context"
	"strings"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrOrderNotFound        = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	ErrInvalidOrderNumber   = shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number is required")
	ErrInvalidQuantity      = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	ErrInvalidAmount        = shared.NewDomainError("INVALID_AMOUNT", "Amounts cannot be negative")
	ErrDiscountExceedsTotal = shared.NewDomainError("DISCOUNT_EXCEEDS_TOTAL", "Discount exceeds order value")
	ErrInvalidOrderStatus   = shared.NewDomainError("INVALID_ORDER_STATUS", "Unknown order status")
)

// OrderStatus mirrors the fulfilment status on the commerce platform
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on_hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
)

// IsValid checks if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOnHold,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// CountsAsRevenue returns false for orders that never produced revenue
func (s OrderStatus) CountsAsRevenue() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return false
	}
	return true
}

// NonRevenueStatuses lists statuses excluded from revenue reporting
func NonRevenueStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed}
}

// ParseOrderStatus parses a status, defaulting empty input to pending
func ParseOrderStatus(s string) (OrderStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OrderStatusPending, nil
	}
	st := OrderStatus(strings.ReplaceAll(s, "-", "_"))
	if !st.IsValid() {
		return "", ErrInvalidOrderStatus
	}
	return st, nil
}

// OrderItem is a line of an order. Total is always Quantity * UnitPrice.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// ItemInput describes a line to add or replace
type ItemInput struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func newOrderItem(orderID uuid.UUID, in ItemInput) (OrderItem, error) {
	if in.Quantity <= 0 {
		return OrderItem{}, ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return OrderItem{}, ErrInvalidAmount
	}
	return OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		SKU:       strings.TrimSpace(in.SKU),
		Name:      strings.TrimSpace(in.Name),
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		Total:     in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
	}, nil
}

// sameLine compares the caller-visible fields of a line
func (i OrderItem) sameLine(in ItemInput) bool {
	return i.SKU == strings.TrimSpace(in.SKU) &&
		i.Name == strings.TrimSpace(in.Name) &&
		i.Quantity == in.Quantity &&
		i.UnitPrice.Equal(in.UnitPrice)
}

// Order is a shop order. Subtotal and Total are derived and recomputed on
// every mutation; they are never taken from input.
type Order struct {
	shared.TenantAggregateRoot
	StoreID       uuid.UUID
	OrderNumber   string
	CustomerEmail string
	Currency      valueobject.Currency
	Status        OrderStatus
	Items         []OrderItem
	TaxTotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	DiscountTotal decimal.Decimal
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	PlacedAt      time.Time
}

// NewOrder creates an empty pending order
func NewOrder(tenantID, storeID uuid.UUID, orderNumber string, currency valueobject.Currency) (*Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, ErrInvalidOrderNumber
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order requires a store")
	}
	if currency.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order requires a currency")
	}
	o := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StoreID:             storeID,
		OrderNumber:         orderNumber,
		Currency:            currency,
		Status:              OrderStatusPending,
		Items:               make([]OrderItem, 0),
		TaxTotal:            decimal.Zero,
		ShippingTotal:       decimal.Zero,
		DiscountTotal:       decimal.Zero,
		PlacedAt:            time.Now(),
	}
	o.recalculateTotals()
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// AddItem appends a line
func (o *Order) AddItem(in ItemInput) (*OrderItem, error) {
	item, err := newOrderItem(o.ID, in)
	if err != nil {
		return nil, err
	}
	items := append(append([]OrderItem{}, o.Items...), item)
	if err := o.commitItems(items, o.TaxTotal, o.ShippingTotal, o.DiscountTotal); err != nil {
		return nil, err
	}
	return &o.Items[len(o.Items)-1], nil
}

// ReplaceItems swaps every line. Lines equal to the current ones keep their ids.
func (o *Order) ReplaceItems(inputs []ItemInput) (bool, error) {
	if o.itemsMatch(inputs) {
		return false, nil
	}
	items := make([]OrderItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := newOrderItem(o.ID, in)
		if err != nil {
			return false, err
		}
		items = append(items, item)
	}
	if err := o.commitItems(items, o.TaxTotal, o.ShippingTotal, o.DiscountTotal); err != nil {
		return false, err
	}
	return true, nil
}

// SetAdjustments sets tax, shipping and discount
func (o *Order) SetAdjustments(tax, shipping, discount decimal.Decimal) (bool, error) {
	if tax.IsNegative() || shipping.IsNegative() || discount.IsNegative() {
		return false, ErrInvalidAmount
	}
	if tax.Equal(o.TaxTotal) && shipping.Equal(o.ShippingTotal) && discount.Equal(o.DiscountTotal) {
		return false, nil
	}
	if err := o.commitItems(o.Items, tax, shipping, discount); err != nil {
		return false, err
	}
	return true, nil
}

// SetStatus changes the fulfilment status
func (o *Order) SetStatus(status OrderStatus) (bool, error) {
	if !status.IsValid() {
		return false, ErrInvalidOrderStatus
	}
	if o.Status == status {
		return false, nil
	}
	o.Status = status
	o.touch()
	return true, nil
}

// SetCustomerEmail links the order to a customer by email
func (o *Order) SetCustomerEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if o.CustomerEmail == email {
		return false
	}
	o.CustomerEmail = email
	o.touch()
	return true
}

// ApplyRemote copies a remote payload onto the order. The remote total is
// ignored; totals are recomputed from lines and adjustments.
func (o *Order) ApplyRemote(p integration.OrderPayload) (bool, error) {
	changed := false

	if n := strings.TrimSpace(p.OrderNumber); n != "" && n != o.OrderNumber {
		o.OrderNumber = n
		changed = true
	}
	if p.Currency != "" {
		cur, err := valueobject.ParseCurrency(p.Currency)
		if err != nil {
			return false, shared.WrapDomainError(shared.CodeValidation, "Invalid order currency", err)
		}
		if cur != o.Currency {
			o.Currency = cur
			changed = true
		}
	}
	status, err := ParseOrderStatus(p.Status)
	if err != nil {
		return false, err
	}
	if c, err := o.SetStatus(status); err != nil {
		return false, err
	} else if c {
		changed = true
	}
	if o.SetCustomerEmail(p.CustomerEmail) {
		changed = true
	}
	if p.PlacedAt != nil && !p.PlacedAt.Equal(o.PlacedAt) {
		o.PlacedAt = *p.PlacedAt
		changed = true
	}

	inputs := make([]ItemInput, 0, len(p.Lines))
	for _, l := range p.Lines {
		inputs = append(inputs, ItemInput{SKU: l.SKU, Name: l.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	if c, err := o.ReplaceItems(inputs); err != nil {
		return false, err
	} else if c {
		changed = true
	}
	if c, err := o.SetAdjustments(p.TaxTotal, p.ShippingTotal, p.DiscountTotal); err != nil {
		return false, err
	} else if c {
		changed = true
	}

	if changed {
		o.touch()
	}
	return changed, nil
}

// ToPayload builds the payload pushed to the remote platform
func (o *Order) ToPayload() integration.OrderPayload {
	lines := make([]integration.OrderLinePayload, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, integration.OrderLinePayload{
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
		})
	}
	placed := o.PlacedAt
	return integration.OrderPayload{
		ExternalRef:   o.ID.String(),
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		Currency:      o.Currency.String(),
		CustomerEmail: o.CustomerEmail,
		Lines:         lines,
		TaxTotal:      o.TaxTotal,
		ShippingTotal: o.ShippingTotal,
		DiscountTotal: o.DiscountTotal,
		Total:         o.Total,
		PlacedAt:      &placed,
	}
}

// ItemCount returns the number of lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}

func (o *Order) itemsMatch(inputs []ItemInput) bool {
	if len(inputs) != len(o.Items) {
		return false
	}
	for i, in := range inputs {
		if !o.Items[i].sameLine(in) {
			return false
		}
	}
	return true
}

// commitItems validates the resulting totals before mutating the order so a
// rejected change leaves the order as it was.
func (o *Order) commitItems(items []OrderItem, tax, shipping, discount decimal.Decimal) error {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}
	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		return ErrDiscountExceedsTotal
	}
	o.Items = items
	o.TaxTotal = tax
	o.ShippingTotal = shipping
	o.DiscountTotal = discount
	o.recalculateTotals()
	o.touch()
	return nil
}

func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].Total = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		subtotal = subtotal.Add(o.Items[i].Total)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.TaxTotal).Add(o.ShippingTotal).Sub(o.DiscountTotal)
}

// Recalculate recomputes derived totals, e.g. after loading from storage
func (o *Order) Recalculate() {
	o.recalculateTotals()
}

func (o *Order) touch() {
	o.Touch()
	o.IncrementVersion()
}

// RevenueRow is the currency and total of one order, as read for reporting
type RevenueRow struct {
	Currency valueobject.Currency
	Total    decimal.Decimal
}

// OrderFilter narrows order listings
type OrderFilter struct {
	TenantID      uuid.UUID
	PlacedFrom    *time.Time
	PlacedTo      *time.Time
	ExcludeStatus []OrderStatus
}

// OrderRepository defines order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByOrderNumber finds an order of a store by its number
	FindByOrderNumber(ctx context.Context, storeID uuid.UUID, orderNumber string) (*Order, error)
	ListIDsByStore(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)
	// ListRevenueRows returns currency and total of every matching order
	ListRevenueRows(ctx context.Context, filter OrderFilter) ([]RevenueRow, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}
