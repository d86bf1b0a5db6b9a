// Package exchangerate provides report.ExchangeRateProvider implementations:
// an HTTP rate service client, static configured rates, a fallback chain
// and a caching decorator.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
)

const maxRateResponseSize = 1 << 20

// latestResponse is the body of GET {base}/latest?base=EUR&symbols=USD
type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date,omitempty"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// HTTPProvider fetches rates from a JSON rate service
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPProvider creates a provider for the service at baseURL
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Rate returns the multiplier converting from into to. orgID is not used by the service.
func (p *HTTPProvider) Rate(ctx context.Context, from, to valueobject.Currency, _ uuid.UUID) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("base", from.String())
	query.Set("symbols", to.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/latest?"+query.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchangerate: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: %v", report.ErrRateUnavailable, from, to, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRateResponseSize))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to read response: %v", report.ErrRateUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: HTTP %d", report.ErrRateUnavailable, from, to, resp.StatusCode)
	}

	var parsed latestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to parse response: %v", report.ErrRateUnavailable, err)
	}

	rate, ok := parsed.Rates[to.String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s->%s not quoted", report.ErrRateUnavailable, from, to)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s->%s: %w", from, to, report.ErrInvalidRate)
	}

	p.logger.Debug("fetched exchange rate",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("rate", rate.String()),
		zap.String("date", parsed.Date),
	)
	return rate, nil
}

var _ report.ExchangeRateProvider = (*HTTPProvider)(nil)
