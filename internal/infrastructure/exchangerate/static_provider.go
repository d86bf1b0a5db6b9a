package exchangerate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
)

type pair struct {
	from, to valueobject.Currency
}

// StaticProvider serves fixed rates, typically from configuration.
// The inverse of a configured pair is derived when it is not configured itself.
type StaticProvider struct {
	rates map[pair]decimal.Decimal
}

// NewStaticProvider parses rates keyed "EUR_USD" (or "EUR/USD") with decimal string values
func NewStaticProvider(raw map[string]string) (*StaticProvider, error) {
	p := &StaticProvider{rates: make(map[pair]decimal.Decimal, len(raw))}
	for key, value := range raw {
		parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '/' || r == '-' })
		if len(parts) != 2 {
			return nil, fmt.Errorf("exchangerate: invalid pair %q, expected FROM_TO", key)
		}
		from, err := valueobject.ParseCurrency(parts[0])
		if err != nil {
			return nil, fmt.Errorf("exchangerate: pair %q: %w", key, err)
		}
		to, err := valueobject.ParseCurrency(parts[1])
		if err != nil {
			return nil, fmt.Errorf("exchangerate: pair %q: %w", key, err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("exchangerate: pair %q: invalid rate %q", key, value)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("exchangerate: pair %q: %w", key, report.ErrInvalidRate)
		}
		p.rates[pair{from, to}] = rate
	}
	return p, nil
}

// Rate returns the configured rate, or the inverse of the reverse pair
func (p *StaticProvider) Rate(_ context.Context, from, to valueobject.Currency, _ uuid.UUID) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := p.rates[pair{from, to}]; ok {
		return rate, nil
	}
	if rate, ok := p.rates[pair{to, from}]; ok {
		return decimal.NewFromInt(1).Div(rate), nil
	}
	return decimal.Zero, fmt.Errorf("%w: no static rate %s->%s", report.ErrRateUnavailable, from, to)
}

// Len returns the number of configured pairs
func (p *StaticProvider) Len() int {
	return len(p.rates)
}

var _ report.ExchangeRateProvider = (*StaticProvider)(nil)
