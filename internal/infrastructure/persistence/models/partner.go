package models

import (
	"github.com/erp/storesync/internal/domain/partner"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CustomerModel is the persistence model for partner.Customer.
// Email is unique per store; addresses are JSON columns.
type CustomerModel struct {
	TenantAggregateModel
	StoreID   uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_customer_store_email,priority:1"`
	Email     string              `gorm:"type:varchar(200);not null;uniqueIndex:idx_customer_store_email,priority:2"`
	FirstName string              `gorm:"type:varchar(100)"`
	LastName  string              `gorm:"type:varchar(100)"`
	Phone     string              `gorm:"type:varchar(50)"`
	Company   string              `gorm:"type:varchar(200)"`
	Billing   valueobject.Address `gorm:"type:text"`
	Shipping  valueobject.Address `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() *partner.Customer {
	c := &partner.Customer{
		StoreID:   m.StoreID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		Company:   m.Company,
		Billing:   m.Billing,
		Shipping:  m.Shipping,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// CustomerModelFromDomain creates a model from a domain Customer
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{
		StoreID:   c.StoreID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Company:   c.Company,
		Billing:   c.Billing,
		Shipping:  c.Shipping,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}
