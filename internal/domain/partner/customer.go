package partner

import (
	"context"
	"regexp"
	"strings"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Domain errors
var (
	ErrCustomerNotFound = shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	ErrInvalidEmail     = shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
)

// Customer is a shop customer owned by an organization and attached to one store
type Customer struct {
	shared.TenantAggregateRoot
	StoreID   uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Company   string
	Billing   valueobject.Address
	Shipping  valueobject.Address
}

// NewCustomer creates a new customer
func NewCustomer(tenantID, storeID uuid.UUID, email, firstName, lastName string) (*Customer, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer requires a store")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	c := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StoreID:             storeID,
		Email:               email,
		FirstName:           strings.TrimSpace(firstName),
		LastName:            strings.TrimSpace(lastName),
	}
	c.AddDomainEvent(NewCustomerCreatedEvent(c))
	return c, nil
}

// CustomerChanges lists the fields an update may change. Nil means unchanged.
type CustomerChanges struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Company   *string
	Billing   *valueobject.Address
	Shipping  *valueobject.Address
}

// IsEmpty reports whether no field is set
func (ch CustomerChanges) IsEmpty() bool {
	return ch == CustomerChanges{}
}

// Apply applies a typed update and reports whether anything changed
func (c *Customer) Apply(ch CustomerChanges) (bool, error) {
	if ch.Email != nil {
		email, err := normalizeEmail(*ch.Email)
		if err != nil {
			return false, err
		}
		ch.Email = &email
	}

	changed := false
	set := func(dst *string, v *string) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if *dst != nv {
			*dst = nv
			changed = true
		}
	}
	set(&c.Email, ch.Email)
	set(&c.FirstName, ch.FirstName)
	set(&c.LastName, ch.LastName)
	set(&c.Phone, ch.Phone)
	set(&c.Company, ch.Company)
	if ch.Billing != nil {
		if b := ch.Billing.Normalize(); b != c.Billing {
			c.Billing = b
			changed = true
		}
	}
	if ch.Shipping != nil {
		if sh := ch.Shipping.Normalize(); sh != c.Shipping {
			c.Shipping = sh
			changed = true
		}
	}

	if changed {
		c.Touch()
		c.IncrementVersion()
		c.AddDomainEvent(NewCustomerUpdatedEvent(c))
	}
	return changed, nil
}

// ApplyRemote copies the remote payload onto the customer
func (c *Customer) ApplyRemote(p integration.CustomerPayload) (bool, error) {
	billing, shipping := p.Billing, p.Shipping
	return c.Apply(CustomerChanges{
		Email:     &p.Email,
		FirstName: &p.FirstName,
		LastName:  &p.LastName,
		Phone:     &p.Phone,
		Company:   &p.Company,
		Billing:   &billing,
		Shipping:  &shipping,
	})
}

// ToPayload builds the payload pushed to the remote platform
func (c *Customer) ToPayload() integration.CustomerPayload {
	return integration.CustomerPayload{
		ExternalRef: c.ID.String(),
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Phone:       c.Phone,
		Company:     c.Company,
		Billing:     c.Billing,
		Shipping:    c.Shipping,
	}
}

// FullName returns first and last name joined
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > 200 || !emailRegex.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// CustomerRepository defines customer persistence
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindByEmail finds a customer of a store by its (normalized) email
	FindByEmail(ctx context.Context, storeID uuid.UUID, email string) (*Customer, error)
	// ListIDsByStore returns the ids of every customer attached to a store
	ListIDsByStore(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)
	Save(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByStore removes every customer of a store and returns the count
	DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}
