package report

import (
	"context"
	"errors"
	"time"

	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by exchange rate providers
var (
	ErrRateUnavailable = errors.New("report: exchange rate unavailable")
	ErrInvalidRate     = errors.New("report: exchange rate must be positive")
)

// ExchangeRateProvider returns the multiplier converting one unit of from into to.
// orgID allows organization specific rates; providers may ignore it.
type ExchangeRateProvider interface {
	Rate(ctx context.Context, from, to valueobject.Currency, orgID uuid.UUID) (decimal.Decimal, error)
}

// DateRange limits a report to orders placed in [From, To)
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(*r.To) {
		return false
	}
	return true
}

// Validate checks that From is not after To
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return errors.New("report: date range end before start")
	}
	return nil
}

// CurrencyTotal is the native and converted amount of one currency group
type CurrencyTotal struct {
	Currency   valueobject.Currency `json:"currency"`
	OrderCount int                  `json:"orderCount"`
	Native     decimal.Decimal      `json:"originalSum"`
	Converted  decimal.Decimal      `json:"convertedSum"`
	Rate       decimal.Decimal      `json:"rate"`
	// IsConverted is false when no rate was available. The native sum is then
	// added to the total as is, and Note says why.
	IsConverted bool   `json:"converted"`
	Note        string `json:"note,omitempty"`
}

// RevenueAggregate is the organization revenue normalized to one currency
type RevenueAggregate struct {
	OrganizationID    uuid.UUID                               `json:"organizationId"`
	ReportingCurrency valueobject.Currency                    `json:"reportingCurrency"`
	TotalConverted    decimal.Decimal                         `json:"totalConverted"`
	OrderCount        int                                     `json:"orderCount"`
	CurrencyBreakdown map[valueobject.Currency]*CurrencyTotal `json:"currencyBreakdown"`
	Period            DateRange                               `json:"period"`
	// Degraded is true when at least one currency group could not be converted
	Degraded          bool                   `json:"degraded"`
	MissingCurrencies []valueobject.Currency `json:"missingCurrencies,omitempty"`
	GeneratedAt       time.Time              `json:"generatedAt"`
}

// NewRevenueAggregate creates an empty aggregate
func NewRevenueAggregate(orgID uuid.UUID, reporting valueobject.Currency, period DateRange) *RevenueAggregate {
	return &RevenueAggregate{
		OrganizationID:    orgID,
		ReportingCurrency: reporting,
		TotalConverted:    decimal.Zero,
		CurrencyBreakdown: make(map[valueobject.Currency]*CurrencyTotal),
		Period:            period,
		GeneratedAt:       time.Now(),
	}
}
