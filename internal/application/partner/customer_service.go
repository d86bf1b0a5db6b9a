package partner

import (
	"context"
	"errors"
	"strings"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/google/uuid"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo partner.CustomerRepository
	storeRepo    tenant.StoreRepository
	syncer       appintegration.RecordSyncer
	events       shared.EventPublisher
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(
	customerRepo partner.CustomerRepository,
	storeRepo tenant.StoreRepository,
	syncer appintegration.RecordSyncer,
	events shared.EventPublisher,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		storeRepo:    storeRepo,
		syncer:       syncer,
		events:       events,
	}
}

// Create creates a new customer. The customer is saved whatever happens on
// the remote platform; with SyncNow the push result is reported in Sync.
func (s *CustomerService) Create(ctx context.Context, tenantID uuid.UUID, req CreateCustomerRequest) (*CustomerResponse, error) {
	if err := s.checkStore(ctx, tenantID, req.StoreID); err != nil {
		return nil, err
	}

	customer, err := partner.NewCustomer(tenantID, req.StoreID, req.Email, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}

	// Check if email already exists in the store
	if err := s.checkEmailFree(ctx, req.StoreID, customer.Email, uuid.Nil); err != nil {
		return nil, err
	}

	// Set optional fields
	customer.Phone = strings.TrimSpace(req.Phone)
	customer.Company = strings.TrimSpace(req.Company)
	if addr := req.Billing.toValue(); addr != nil {
		customer.Billing = addr.Normalize()
	}
	if addr := req.Shipping.toValue(); addr != nil {
		customer.Shipping = addr.Normalize()
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	s.publish(ctx, customer)

	response := ToCustomerResponse(customer)
	if req.SyncNow {
		response.Sync = appintegration.PushOnWrite(ctx, s.syncer, integration.EntityTypeCustomer, customer.ID)
	} else {
		response.Sync = appintegration.CurrentSyncResult(ctx, s.syncer, integration.EntityTypeCustomer, customer.ID)
	}
	return &response, nil
}

// GetByID retrieves a customer by ID together with its sync state
func (s *CustomerService) GetByID(ctx context.Context, tenantID, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.findForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	response.Sync = appintegration.CurrentSyncResult(ctx, s.syncer, integration.EntityTypeCustomer, customer.ID)
	return &response, nil
}

// Update applies a typed update. When nothing changes the customer is not
// saved and no push is attempted. A change saved without SyncNow leaves the
// customer pending so the next job pushes it instead of pulling over it.
func (s *CustomerService) Update(ctx context.Context, tenantID, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.findForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	changes := req.changes()
	if changes.IsEmpty() {
		return nil, shared.NewDomainError(shared.CodeValidation, "No fields to update")
	}

	changed, err := customer.Apply(changes)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.checkEmailFree(ctx, customer.StoreID, customer.Email, customer.ID); err != nil {
			return nil, err
		}
		if err := s.customerRepo.Save(ctx, customer); err != nil {
			return nil, err
		}
		s.publish(ctx, customer)
	}

	response := ToCustomerResponse(customer)
	switch {
	case changed && req.SyncNow:
		response.Sync = appintegration.PushOnWrite(ctx, s.syncer, integration.EntityTypeCustomer, customer.ID)
	case changed:
		response.Sync = appintegration.MarkChangedOnWrite(ctx, s.syncer, integration.EntityTypeCustomer, customer.ID)
	default:
		response.Sync = appintegration.CurrentSyncResult(ctx, s.syncer, integration.EntityTypeCustomer, customer.ID)
	}
	return &response, nil
}

// Delete deletes a customer. With propagateRemote the remote copy is
// deleted first; its result is returned but never blocks the local delete.
func (s *CustomerService) Delete(ctx context.Context, tenantID, customerID uuid.UUID, propagateRemote bool) (*appintegration.SyncResult, error) {
	if _, err := s.findForTenant(ctx, tenantID, customerID); err != nil {
		return nil, err
	}
	out, err := s.syncer.DeleteRecord(ctx, integration.EntityTypeCustomer, customerID, propagateRemote)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return appintegration.SyncResultFromOutcome(*out), nil
}

func (s *CustomerService) findForTenant(ctx context.Context, tenantID, customerID uuid.UUID) (*partner.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.TenantID != tenantID {
		return nil, partner.ErrCustomerNotFound
	}
	return customer, nil
}

func (s *CustomerService) checkStore(ctx context.Context, tenantID, storeID uuid.UUID) error {
	store, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return err
	}
	if !store.BelongsTo(tenantID) {
		return tenant.ErrStoreNotFound
	}
	return nil
}

func (s *CustomerService) checkEmailFree(ctx context.Context, storeID uuid.UUID, email string, self uuid.UUID) error {
	existing, err := s.customerRepo.FindByEmail(ctx, storeID, email)
	if err != nil {
		if errors.Is(err, partner.ErrCustomerNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return shared.NewDomainError("ALREADY_EXISTS", "Customer with this email already exists")
	}
	return nil
}

func (s *CustomerService) publish(ctx context.Context, customer *partner.Customer) {
	events := customer.GetDomainEvents()
	customer.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	_ = s.events.Publish(ctx, events...)
}
