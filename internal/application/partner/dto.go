package partner

import (
	"time"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// =============================================================================
// Customer DTOs
// =============================================================================

// AddressInput is a postal address in a request
type AddressInput struct {
	Line1      string `json:"line1" binding:"max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	Region     string `json:"region" binding:"max=100"`
	PostalCode string `json:"postalCode" binding:"max=20"`
	Country    string `json:"country" binding:"omitempty,len=2"`
}

func (a *AddressInput) toValue() *valueobject.Address {
	if a == nil {
		return nil
	}
	return &valueobject.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	StoreID   uuid.UUID     `json:"storeId" binding:"required"`
	Email     string        `json:"email" binding:"required,email,max=200"`
	FirstName string        `json:"firstName" binding:"max=100"`
	LastName  string        `json:"lastName" binding:"max=100"`
	Phone     string        `json:"phone" binding:"max=50"`
	Company   string        `json:"company" binding:"max=200"`
	Billing   *AddressInput `json:"billing"`
	Shipping  *AddressInput `json:"shipping"`
	// SyncNow pushes the customer to the store right after it is saved
	SyncNow bool `json:"syncNow"`
}

// UpdateCustomerRequest represents a request to update a customer.
// Nil fields are left unchanged.
type UpdateCustomerRequest struct {
	Email     *string       `json:"email" binding:"omitempty,email,max=200"`
	FirstName *string       `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string       `json:"lastName" binding:"omitempty,max=100"`
	Phone     *string       `json:"phone" binding:"omitempty,max=50"`
	Company   *string       `json:"company" binding:"omitempty,max=200"`
	Billing   *AddressInput `json:"billing"`
	Shipping  *AddressInput `json:"shipping"`
	SyncNow   bool          `json:"syncNow"`
}

func (r UpdateCustomerRequest) changes() partner.CustomerChanges {
	return partner.CustomerChanges{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Company:   r.Company,
		Billing:   r.Billing.toValue(),
		Shipping:  r.Shipping.toValue(),
	}
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        uuid.UUID                  `json:"id"`
	TenantID  uuid.UUID                  `json:"organizationId"`
	StoreID   uuid.UUID                  `json:"storeId"`
	Email     string                     `json:"email"`
	FirstName string                     `json:"firstName"`
	LastName  string                     `json:"lastName"`
	FullName  string                     `json:"fullName"`
	Phone     string                     `json:"phone,omitempty"`
	Company   string                     `json:"company,omitempty"`
	Billing   *valueobject.Address       `json:"billing,omitempty"`
	Shipping  *valueobject.Address       `json:"shipping,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Version   int                        `json:"version"`
	Sync      *appintegration.SyncResult `json:"sync,omitempty"`
}

// ToCustomerResponse converts a domain Customer to CustomerResponse
func ToCustomerResponse(c *partner.Customer) CustomerResponse {
	resp := CustomerResponse{
		ID:        c.ID,
		TenantID:  c.TenantID,
		StoreID:   c.StoreID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		FullName:  c.FullName(),
		Phone:     c.Phone,
		Company:   c.Company,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Version:   c.Version,
	}
	if !c.Billing.IsEmpty() {
		b := c.Billing
		resp.Billing = &b
	}
	if !c.Shipping.IsEmpty() {
		s := c.Shipping
		resp.Shipping = &s
	}
	return resp
}
