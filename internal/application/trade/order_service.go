package trade

import (
	"context"
	"errors"
	"strings"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService handles order business operations
type OrderService struct {
	orderRepo      trade.OrderRepository
	storeRepo      tenant.StoreRepository
	syncer         appintegration.RecordSyncer
	eventPublisher shared.EventPublisher
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo trade.OrderRepository, storeRepo tenant.StoreRepository, syncer appintegration.RecordSyncer) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		storeRepo: storeRepo,
		syncer:    syncer,
	}
}

// SetEventPublisher sets the event publisher
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new order
func (s *OrderService) Create(ctx context.Context, tenantID uuid.UUID, req CreateOrderRequest) (*OrderResponse, error) {
	store, err := s.storeRepo.FindByID(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.BelongsTo(tenantID) {
		return nil, tenant.ErrStoreNotFound
	}

	// Orders inherit the store currency unless one is given
	currency := store.DefaultCurrency
	if req.Currency != "" {
		if currency, err = valueobject.ParseCurrency(req.Currency); err != nil {
			return nil, shared.WrapDomainError("INVALID_CURRENCY", "Invalid currency code", err)
		}
	}

	existing, err := s.orderRepo.FindByOrderNumber(ctx, store.ID, req.OrderNumber)
	if err != nil && !errors.Is(err, trade.ErrOrderNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Order with this number already exists")
	}

	order, err := trade.NewOrder(tenantID, store.ID, req.OrderNumber, currency)
	if err != nil {
		return nil, err
	}
	if req.PlacedAt != nil {
		order.PlacedAt = *req.PlacedAt
	}
	if req.Status != "" {
		status, err := trade.ParseOrderStatus(req.Status)
		if err != nil {
			return nil, err
		}
		order.Status = status
	}
	order.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))

	// Add items
	if _, err := order.ReplaceItems(toItemInputs(req.Items)); err != nil {
		return nil, err
	}

	// Apply adjustments
	if _, err := order.SetAdjustments(
		orZero(req.TaxTotal),
		orZero(req.ShippingTotal),
		orZero(req.DiscountTotal),
	); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, order)

	response := ToOrderResponse(order)
	if req.SyncNow {
		response.Sync = appintegration.PushOnWrite(ctx, s.syncer, integration.EntityTypeOrder, order.ID)
	} else {
		response.Sync = appintegration.CurrentSyncResult(ctx, s.syncer, integration.EntityTypeOrder, order.ID)
	}
	return &response, nil
}

// GetByID retrieves an order by ID
func (s *OrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.findForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	response.Sync = appintegration.CurrentSyncResult(ctx, s.syncer, integration.EntityTypeOrder, order.ID)
	return &response, nil
}

// Update updates an order. Totals are recomputed by the order itself.
func (s *OrderService) Update(ctx context.Context, tenantID, orderID uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error) {
	if req.IsEmpty() {
		return nil, shared.NewDomainError(shared.CodeValidation, "No fields to update")
	}
	order, err := s.findForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	changed := false

	// Replace lines
	if req.Items != nil {
		c, err := order.ReplaceItems(toItemInputs(*req.Items))
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	// Update adjustments
	if req.TaxTotal != nil || req.ShippingTotal != nil || req.DiscountTotal != nil {
		tax, shipping, discount := order.TaxTotal, order.ShippingTotal, order.DiscountTotal
		if req.TaxTotal != nil {
			tax = *req.TaxTotal
		}
		if req.ShippingTotal != nil {
			shipping = *req.ShippingTotal
		}
		if req.DiscountTotal != nil {
			discount = *req.DiscountTotal
		}
		c, err := order.SetAdjustments(tax, shipping, discount)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	// Update status
	if req.Status != nil {
		status, err := trade.ParseOrderStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		c, err := order.SetStatus(status)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	if req.CustomerEmail != nil && order.SetCustomerEmail(*req.CustomerEmail) {
		changed = true
	}

	if changed {
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, order)
	}

	response := ToOrderResponse(order)
	switch {
	case changed && req.SyncNow:
		response.Sync = appintegration.PushOnWrite(ctx, s.syncer, integration.EntityTypeOrder, order.ID)
	case changed:
		response.Sync = appintegration.MarkChangedOnWrite(ctx, s.syncer, integration.EntityTypeOrder, order.ID)
	default:
		response.Sync = appintegration.CurrentSyncResult(ctx, s.syncer, integration.EntityTypeOrder, order.ID)
	}
	return &response, nil
}

// Delete deletes an order, optionally deleting the remote copy first
func (s *OrderService) Delete(ctx context.Context, tenantID, orderID uuid.UUID, propagateRemote bool) (*appintegration.SyncResult, error) {
	if _, err := s.findForTenant(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	out, err := s.syncer.DeleteRecord(ctx, integration.EntityTypeOrder, orderID, propagateRemote)
	if err != nil || out == nil {
		return nil, err
	}
	return appintegration.SyncResultFromOutcome(*out), nil
}

func (s *OrderService) findForTenant(ctx context.Context, tenantID, orderID uuid.UUID) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TenantID != tenantID {
		return nil, trade.ErrOrderNotFound
	}
	return order, nil
}

// publishEvents publishes and clears the order's pending domain events
func (s *OrderService) publishEvents(ctx context.Context, order *trade.Order) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
