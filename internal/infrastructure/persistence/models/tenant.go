package models

import (
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/google/uuid"
)

// OrganizationModel is the persistence model for tenant.Organization
type OrganizationModel struct {
	BaseModel
	Code              string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name              string `gorm:"type:varchar(200);not null"`
	ReportingCurrency string `gorm:"type:char(3);not null;default:'USD'"`
	Active            bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the model to a domain Organization
func (m *OrganizationModel) ToDomain() *tenant.Organization {
	return &tenant.Organization{
		BaseEntity:        m.BaseModel.ToDomain(),
		Code:              m.Code,
		Name:              m.Name,
		ReportingCurrency: valueobject.Currency(m.ReportingCurrency),
		Active:            m.Active,
	}
}

// OrganizationModelFromDomain creates a model from a domain Organization
func OrganizationModelFromDomain(o *tenant.Organization) *OrganizationModel {
	m := &OrganizationModel{
		Code:              o.Code,
		Name:              o.Name,
		ReportingCurrency: o.ReportingCurrency.String(),
		Active:            o.Active,
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	return m
}

// StoreModel is the persistence model for tenant.Store. APISecret holds the
// sealed secret; the repository seals and opens it.
type StoreModel struct {
	BaseModel
	OrganizationID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name            string    `gorm:"type:varchar(200);not null"`
	BaseURL         string    `gorm:"type:varchar(500);not null"`
	APIKey          string    `gorm:"type:varchar(200)"`
	APISecret       string    `gorm:"type:text"`
	DefaultCurrency string    `gorm:"type:char(3);not null;default:'USD'"`
	Active          bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the model to a domain Store. The secret is left sealed.
func (m *StoreModel) ToDomain() *tenant.Store {
	return &tenant.Store{
		BaseEntity:      m.BaseModel.ToDomain(),
		OrganizationID:  m.OrganizationID,
		Name:            m.Name,
		BaseURL:         m.BaseURL,
		APIKey:          m.APIKey,
		APISecret:       m.APISecret,
		DefaultCurrency: valueobject.Currency(m.DefaultCurrency),
		Active:          m.Active,
	}
}

// StoreModelFromDomain creates a model from a domain Store
func StoreModelFromDomain(s *tenant.Store) *StoreModel {
	m := &StoreModel{
		OrganizationID:  s.OrganizationID,
		Name:            s.Name,
		BaseURL:         s.BaseURL,
		APIKey:          s.APIKey,
		APISecret:       s.APISecret,
		DefaultCurrency: s.DefaultCurrency.String(),
		Active:          s.Active,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
