package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RevenueMetrics records conversions that fell back to native amounts
type RevenueMetrics interface {
	RecordDegradedConversion(ctx context.Context, from, to valueobject.Currency)
}

// CurrencyNormalizer converts amounts between currencies and aggregates
// organization revenue into a single reporting currency.
type CurrencyNormalizer struct {
	orders  trade.OrderRepository
	orgs    tenant.OrganizationRepository
	rates   report.ExchangeRateProvider
	metrics RevenueMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCurrencyNormalizer creates a new CurrencyNormalizer
func NewCurrencyNormalizer(
	orders trade.OrderRepository,
	orgs tenant.OrganizationRepository,
	rates report.ExchangeRateProvider,
	logger *zap.Logger,
) *CurrencyNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurrencyNormalizer{
		orders: orders,
		orgs:   orgs,
		rates:  rates,
		logger: logger,
		now:    time.Now,
	}
}

// SetMetrics sets the metrics recorder for degraded conversions
func (n *CurrencyNormalizer) SetMetrics(metrics RevenueMetrics) {
	n.metrics = metrics
}

// Convert converts amount from one currency to another. No rounding is
// applied.
func (n *CurrencyNormalizer) Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, orgID uuid.UUID) (decimal.Decimal, error) {
	rate, err := n.rate(ctx, from, to, orgID)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

func (n *CurrencyNormalizer) rate(ctx context.Context, from, to valueobject.Currency, orgID uuid.UUID) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, err := n.rates.Rate(ctx, from, to, orgID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate %s->%s: %w", from, to, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate %s->%s: %w", from, to, report.ErrInvalidRate)
	}
	return rate, nil
}

// AggregateRevenue sums the revenue of an organization in the target
// currency. Orders are grouped by their recorded currency and each group is
// converted once. A group whose rate is unavailable is added unconverted and
// flagged; the aggregate is then marked degraded instead of failing.
func (n *CurrencyNormalizer) AggregateRevenue(ctx context.Context, orgID uuid.UUID, target valueobject.Currency, period *report.DateRange) (*report.RevenueAggregate, error) {
	org, err := n.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if target.IsZero() {
		target = org.ReportingCurrency
	}

	var rng report.DateRange
	if period != nil {
		rng = *period
	}
	if err := rng.Validate(); err != nil {
		return nil, shared.WrapDomainError(shared.CodeValidation, "Invalid date range", err)
	}

	rows, err := n.orders.ListRevenueRows(ctx, trade.OrderFilter{
		TenantID:      orgID,
		PlacedFrom:    rng.From,
		PlacedTo:      rng.To,
		ExcludeStatus: trade.NonRevenueStatuses(),
	})
	if err != nil {
		return nil, err
	}

	agg := report.NewRevenueAggregate(orgID, target, rng)
	agg.GeneratedAt = n.now()
	for _, row := range rows {
		group, ok := agg.CurrencyBreakdown[row.Currency]
		if !ok {
			group = &report.CurrencyTotal{Currency: row.Currency, Native: decimal.Zero, Converted: decimal.Zero}
			agg.CurrencyBreakdown[row.Currency] = group
		}
		group.Native = group.Native.Add(row.Total)
		group.OrderCount++
		agg.OrderCount++
	}

	currencies := make([]valueobject.Currency, 0, len(agg.CurrencyBreakdown))
	for c := range agg.CurrencyBreakdown {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	for _, c := range currencies {
		group := agg.CurrencyBreakdown[c]
		rate, err := n.rate(ctx, c, target, orgID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			group.Converted = group.Native
			group.IsConverted = false
			group.Note = degradedNote(err)
			agg.Degraded = true
			agg.MissingCurrencies = append(agg.MissingCurrencies, c)
			if n.metrics != nil {
				n.metrics.RecordDegradedConversion(ctx, c, target)
			}
			n.logger.Warn("Revenue group added without conversion",
				zap.String("organization_id", orgID.String()),
				zap.String("from", c.String()),
				zap.String("to", target.String()),
				zap.Error(err),
			)
		} else {
			group.Rate = rate
			group.Converted = group.Native.Mul(rate)
			group.IsConverted = true
		}
		agg.TotalConverted = agg.TotalConverted.Add(group.Converted)
	}

	return agg, nil
}

func degradedNote(err error) string {
	switch {
	case errors.Is(err, report.ErrInvalidRate):
		return "invalid exchange rate, original amount used"
	case errors.Is(err, report.ErrRateUnavailable):
		return "exchange rate unavailable, original amount used"
	default:
		return "exchange rate lookup failed, original amount used"
	}
}
