package integration

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payload is the entity-specific body exchanged with the remote platform
type Payload interface {
	// EntityType returns the kind of record the payload describes
	EntityType() EntityType
	// NaturalKey is the fallback match key (email for customers, order number for orders)
	NaturalKey() string
	// ExternalReference is the local id echoed to the remote platform. It
	// doubles as the idempotency key of create calls.
	ExternalReference() string
}

// CustomerPayload carries customer contact, billing and shipping fields
type CustomerPayload struct {
	ExternalRef string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	Company     string
	Billing     valueobject.Address
	Shipping    valueobject.Address
}

func (p CustomerPayload) EntityType() EntityType { return EntityTypeCustomer }

func (p CustomerPayload) NaturalKey() string { return strings.ToLower(strings.TrimSpace(p.Email)) }

func (p CustomerPayload) ExternalReference() string { return p.ExternalRef }

// OrderLinePayload is a single order line
type OrderLinePayload struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// OrderPayload carries order header, lines and totals
type OrderPayload struct {
	ExternalRef   string
	OrderNumber   string
	Status        string
	Currency      string
	CustomerEmail string
	Lines         []OrderLinePayload
	TaxTotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
	PlacedAt      *time.Time
}

func (p OrderPayload) EntityType() EntityType { return EntityTypeOrder }

func (p OrderPayload) NaturalKey() string { return strings.TrimSpace(p.OrderNumber) }

func (p OrderPayload) ExternalReference() string { return p.ExternalRef }

// RemoteResult is the outcome of a successful remote write
type RemoteResult struct {
	RemoteID string
	Raw      json.RawMessage
}

// RemoteItem is one record of a remote listing
type RemoteItem struct {
	RemoteID string
	Payload  Payload
	Raw      json.RawMessage
	// DecodeErr is set when the item could not be read. The rest of its page
	// is still usable.
	DecodeErr error
}

// Page is one page of a cursor-paginated remote listing
type Page struct {
	Items      []RemoteItem
	NextCursor string
}

// HasMore returns true if another page follows
func (p *Page) HasMore() bool {
	return p.NextCursor != ""
}

// RemoteClient wraps the remote platform API for a single store. It is a
// pure transport adapter: no retries, every failure is a *RemoteError.
type RemoteClient interface {
	Create(ctx context.Context, entityType EntityType, payload Payload) (*RemoteResult, error)
	Update(ctx context.Context, entityType EntityType, remoteID string, payload Payload) (*RemoteResult, error)
	Delete(ctx context.Context, entityType EntityType, remoteID string) (*RemoteResult, error)
	List(ctx context.Context, entityType EntityType, cursor string) (*Page, error)
	// FindByExternalRef looks up a record previously created with the given
	// external reference. Returns ErrRemoteNotFound (wrapped) when absent.
	FindByExternalRef(ctx context.Context, entityType EntityType, externalRef string) (*RemoteResult, error)
}

// StoreCredentials binds a RemoteClient to one store
type StoreCredentials struct {
	StoreID   uuid.UUID
	BaseURL   string
	APIKey    string
	APISecret string
}

// Validate checks that the credentials are usable
func (c StoreCredentials) Validate() error {
	if c.StoreID == uuid.Nil || c.APIKey == "" || c.APISecret == "" {
		return ErrCredentialsMissing
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidBaseURL
	}
	return nil
}

// RemoteClientFactory builds a RemoteClient from explicit store credentials.
// A fresh client is created per job; there is no shared client state.
type RemoteClientFactory interface {
	NewClient(creds StoreCredentials) (RemoteClient, error)
}
