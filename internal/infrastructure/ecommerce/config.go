package ecommerce

import (
	"errors"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
)

// StoreCredentials binds a client to one store
type StoreCredentials = integration.StoreCredentials

const (
	// DefaultAPIPrefix is prepended to every resource path
	DefaultAPIPrefix = "/api/v1"
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response
)

// ClientConfig holds settings shared by every store client
type ClientConfig struct {
	// UserAgent is sent with every request
	UserAgent string
	// TokenTTL is the lifetime of the per-request bearer token
	TokenTTL time.Duration
	// CallTimeout bounds each remote call including reading the body
	CallTimeout time.Duration
	// PageSize is the limit requested from list endpoints
	PageSize int
	// APIPrefix is the path prefix of the remote API
	APIPrefix string
}

var ErrInvalidPageSize = errors.New("ecommerce: page size must be between 1 and 500")

// DefaultClientConfig returns a config with defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		UserAgent:   "storesync/1.0",
		TokenTTL:    5 * time.Minute,
		CallTimeout: 15 * time.Second,
		PageSize:    100,
		APIPrefix:   DefaultAPIPrefix,
	}
}

// Validate fills zero values with defaults and checks ranges
func (c *ClientConfig) Validate() error {
	def := DefaultClientConfig()
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = def.TokenTTL
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = def.CallTimeout
	}
	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.PageSize < 1 || c.PageSize > 500 {
		return ErrInvalidPageSize
	}
	if c.APIPrefix == "" {
		c.APIPrefix = def.APIPrefix
	}
	return nil
}

// resourcePath maps an entity type to its collection path
func resourcePath(et integration.EntityType) (string, error) {
	switch et {
	case integration.EntityTypeCustomer:
		return "/customers", nil
	case integration.EntityTypeOrder:
		return "/orders", nil
	default:
		return "", integration.ErrInvalidEntityType
	}
}
