package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/google/uuid"
)

// StoreScope identifies the store and organization a job runs for
type StoreScope struct {
	StoreID         uuid.UUID
	TenantID        uuid.UUID
	DefaultCurrency valueobject.Currency
}

// LocalRecord is the view of a local entity needed to push it
type LocalRecord struct {
	LocalID  uuid.UUID
	StoreID  uuid.UUID
	TenantID uuid.UUID
	Payload  integration.Payload
}

// EntityBinding adapts one local entity type to the reconciler. The
// reconciler is generic; everything entity specific lives behind this.
type EntityBinding interface {
	EntityType() integration.EntityType
	// Load returns the local record or the entity's not-found error
	Load(ctx context.Context, localID uuid.UUID) (*LocalRecord, error)
	// FindByNaturalKey resolves a local record of the store by email or order number
	FindByNaturalKey(ctx context.Context, storeID uuid.UUID, key string) (uuid.UUID, bool, error)
	// ApplyRemote creates (localID nil) or updates a local record from a
	// remote payload. It reports whether local fields changed.
	ApplyRemote(ctx context.Context, scope StoreScope, localID *uuid.UUID, payload integration.Payload) (uuid.UUID, bool, error)
	ListLocalIDs(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)
	DeleteLocal(ctx context.Context, localID uuid.UUID) error
	DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}

// ErrPayloadMismatch is returned when a payload of the wrong entity type reaches a binding
var ErrPayloadMismatch = errors.New("integration: payload does not match entity type")

// IsRecordNotFound reports whether err means the local record does not exist
func IsRecordNotFound(err error) bool {
	return errors.Is(err, partner.ErrCustomerNotFound) || errors.Is(err, trade.ErrOrderNotFound)
}

// ---------------------------------------------------------------------------
// Customer binding
// ---------------------------------------------------------------------------

type customerBinding struct {
	repo partner.CustomerRepository
}

// NewCustomerBinding binds customers to the reconciler
func NewCustomerBinding(repo partner.CustomerRepository) EntityBinding {
	return &customerBinding{repo: repo}
}

func (b *customerBinding) EntityType() integration.EntityType {
	return integration.EntityTypeCustomer
}

func (b *customerBinding) Load(ctx context.Context, localID uuid.UUID) (*LocalRecord, error) {
	c, err := b.repo.FindByID(ctx, localID)
	if err != nil {
		return nil, err
	}
	return &LocalRecord{LocalID: c.ID, StoreID: c.StoreID, TenantID: c.TenantID, Payload: c.ToPayload()}, nil
}

func (b *customerBinding) FindByNaturalKey(ctx context.Context, storeID uuid.UUID, key string) (uuid.UUID, bool, error) {
	if key == "" {
		return uuid.Nil, false, nil
	}
	c, err := b.repo.FindByEmail(ctx, storeID, key)
	if err != nil {
		if errors.Is(err, partner.ErrCustomerNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return c.ID, true, nil
}

func (b *customerBinding) ApplyRemote(ctx context.Context, scope StoreScope, localID *uuid.UUID, payload integration.Payload) (uuid.UUID, bool, error) {
	p, ok := payload.(integration.CustomerPayload)
	if !ok {
		return uuid.Nil, false, fmt.Errorf("%w: %T", ErrPayloadMismatch, payload)
	}

	var (
		c   *partner.Customer
		err error
	)
	created := localID == nil
	if created {
		c, err = partner.NewCustomer(scope.TenantID, scope.StoreID, p.Email, p.FirstName, p.LastName)
	} else {
		c, err = b.repo.FindByID(ctx, *localID)
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	changed, err := c.ApplyRemote(p)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !created && !changed {
		return c.ID, false, nil
	}
	if err := b.repo.Save(ctx, c); err != nil {
		return uuid.Nil, false, err
	}
	return c.ID, true, nil
}

func (b *customerBinding) ListLocalIDs(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	return b.repo.ListIDsByStore(ctx, storeID)
}

func (b *customerBinding) DeleteLocal(ctx context.Context, localID uuid.UUID) error {
	return b.repo.Delete(ctx, localID)
}

func (b *customerBinding) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return b.repo.DeleteByStore(ctx, storeID)
}

// ---------------------------------------------------------------------------
// Order binding
// ---------------------------------------------------------------------------

type orderBinding struct {
	repo trade.OrderRepository
}

// NewOrderBinding binds orders to the reconciler
func NewOrderBinding(repo trade.OrderRepository) EntityBinding {
	return &orderBinding{repo: repo}
}

func (b *orderBinding) EntityType() integration.EntityType {
	return integration.EntityTypeOrder
}

func (b *orderBinding) Load(ctx context.Context, localID uuid.UUID) (*LocalRecord, error) {
	o, err := b.repo.FindByID(ctx, localID)
	if err != nil {
		return nil, err
	}
	return &LocalRecord{LocalID: o.ID, StoreID: o.StoreID, TenantID: o.TenantID, Payload: o.ToPayload()}, nil
}

func (b *orderBinding) FindByNaturalKey(ctx context.Context, storeID uuid.UUID, key string) (uuid.UUID, bool, error) {
	if key == "" {
		return uuid.Nil, false, nil
	}
	o, err := b.repo.FindByOrderNumber(ctx, storeID, key)
	if err != nil {
		if errors.Is(err, trade.ErrOrderNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return o.ID, true, nil
}

func (b *orderBinding) ApplyRemote(ctx context.Context, scope StoreScope, localID *uuid.UUID, payload integration.Payload) (uuid.UUID, bool, error) {
	p, ok := payload.(integration.OrderPayload)
	if !ok {
		return uuid.Nil, false, fmt.Errorf("%w: %T", ErrPayloadMismatch, payload)
	}

	var (
		o   *trade.Order
		err error
	)
	created := localID == nil
	if created {
		cur := scope.DefaultCurrency
		if p.Currency != "" {
			if cur, err = valueobject.ParseCurrency(p.Currency); err != nil {
				return uuid.Nil, false, err
			}
		}
		o, err = trade.NewOrder(scope.TenantID, scope.StoreID, p.OrderNumber, cur)
	} else {
		o, err = b.repo.FindByID(ctx, *localID)
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	changed, err := o.ApplyRemote(p)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !created && !changed {
		return o.ID, false, nil
	}
	if err := b.repo.Save(ctx, o); err != nil {
		return uuid.Nil, false, err
	}
	return o.ID, true, nil
}

func (b *orderBinding) ListLocalIDs(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	return b.repo.ListIDsByStore(ctx, storeID)
}

func (b *orderBinding) DeleteLocal(ctx context.Context, localID uuid.UUID) error {
	return b.repo.Delete(ctx, localID)
}

func (b *orderBinding) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return b.repo.DeleteByStore(ctx, storeID)
}
