// Package tenant holds organizations and the remote stores they own.
package tenant

import (
	"context"
	"strings"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Domain errors
var (
	ErrOrganizationNotFound = shared.NewDomainError("ORGANIZATION_NOT_FOUND", "Organization not found")
	ErrStoreNotFound        = shared.NewDomainError("STORE_NOT_FOUND", "Store not found")
	ErrStoreInactive        = shared.NewDomainError("STORE_INACTIVE", "Store is not active")
	ErrStoreNoCredentials   = shared.NewDomainError("STORE_CREDENTIALS_MISSING", "Store has no usable API credentials")
)

// Organization is a tenant. Every customer, order and store belongs to one.
type Organization struct {
	shared.BaseEntity
	Code              string
	Name              string
	ReportingCurrency valueobject.Currency
	Active            bool
}

// NewOrganization creates an active organization
func NewOrganization(code, name string, reportingCurrency valueobject.Currency) (*Organization, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Organization code and name are required")
	}
	if reportingCurrency.IsZero() {
		reportingCurrency = valueobject.DefaultCurrency
	}
	return &Organization{
		BaseEntity:        shared.NewBaseEntity(),
		Code:              code,
		Name:              name,
		ReportingCurrency: reportingCurrency,
		Active:            true,
	}, nil
}

// Store is one shop on the remote commerce platform
type Store struct {
	shared.BaseEntity
	OrganizationID  uuid.UUID
	Name            string
	BaseURL         string
	APIKey          string
	APISecret       string
	DefaultCurrency valueobject.Currency
	Active          bool
}

// NewStore creates an active store for an organization
func NewStore(organizationID uuid.UUID, name, baseURL string) (*Store, error) {
	name = strings.TrimSpace(name)
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Store requires an organization")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Store name is required")
	}
	return &Store{
		BaseEntity:      shared.NewBaseEntity(),
		OrganizationID:  organizationID,
		Name:            name,
		BaseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		DefaultCurrency: valueobject.DefaultCurrency,
		Active:          true,
	}, nil
}

// SetCredentials replaces the API key and secret
func (s *Store) SetCredentials(apiKey, apiSecret string) {
	s.APIKey = strings.TrimSpace(apiKey)
	s.APISecret = apiSecret
	s.Touch()
}

// BelongsTo reports whether the store is owned by the organization
func (s *Store) BelongsTo(organizationID uuid.UUID) bool {
	return s.OrganizationID == organizationID
}

// Credentials returns the explicit credential set used to build a remote client
func (s *Store) Credentials() (integration.StoreCredentials, error) {
	creds := integration.StoreCredentials{
		StoreID:   s.ID,
		BaseURL:   s.BaseURL,
		APIKey:    s.APIKey,
		APISecret: s.APISecret,
	}
	if err := creds.Validate(); err != nil {
		return integration.StoreCredentials{}, shared.WrapDomainError(ErrStoreNoCredentials.Code, ErrStoreNoCredentials.Message, err)
	}
	return creds, nil
}

// OrganizationRepository is the organization lookup used by the sync engine
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Save(ctx context.Context, org *Organization) error
}

// StoreRepository is the store lookup used by the sync engine
type StoreRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)
	FindByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Store, error)
	Save(ctx context.Context, store *Store) error
}
