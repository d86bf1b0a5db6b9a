package ecommerce

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
)

// ClientFactory builds one Client per store credentials.
// Clients share the HTTP transport but no other state.
type ClientFactory struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// FactoryOption configures a ClientFactory
type FactoryOption func(*ClientFactory)

// WithHTTPClient replaces the HTTP client used by every store client
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *ClientFactory) {
		f.httpClient = c
	}
}

// WithTracing wraps the transport with OpenTelemetry client spans
func WithTracing() FactoryOption {
	return func(f *ClientFactory) {
		base := f.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		f.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(base),
		}
	}
}

// NewClientFactory creates a factory. cfg is validated and defaulted.
func NewClientFactory(cfg ClientConfig, logger *zap.Logger, opts ...FactoryOption) (*ClientFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &ClientFactory{
		config: cfg,
		// per-call deadlines come from the request context
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewClient returns a RemoteClient bound to creds
func (f *ClientFactory) NewClient(creds integration.StoreCredentials) (integration.RemoteClient, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return newClient(creds, f.config, f.httpClient, f.logger), nil
}

var _ integration.RemoteClientFactory = (*ClientFactory)(nil)
