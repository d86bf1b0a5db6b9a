package report

import (
	"time"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/shopspring/decimal"
)

// displayPlaces is the rounding applied to amounts in responses only
const displayPlaces = 4

// RevenueRequest is the revenue report query
type RevenueRequest struct {
	OrganizationID string `form:"organizationId" binding:"required,uuid"`
	Currency       string `form:"currency" binding:"omitempty,len=3"`
	From           string `form:"from"`
	To             string `form:"to"`
}

// CurrencyBreakdownResponse is one currency group of a revenue report
type CurrencyBreakdownResponse struct {
	OriginalSum  decimal.Decimal  `json:"originalSum"`
	ConvertedSum decimal.Decimal  `json:"convertedSum"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	OrderCount   int              `json:"orderCount"`
	Converted    bool             `json:"converted"`
	Note         string           `json:"note,omitempty"`
}

// RevenueResponse is the revenue report
type RevenueResponse struct {
	OrganizationID    string                               `json:"organizationId"`
	Currency          string                               `json:"currency"`
	Total             decimal.Decimal                      `json:"total"`
	OrderCount        int                                  `json:"orderCount"`
	CurrencyBreakdown map[string]CurrencyBreakdownResponse `json:"currencyBreakdown"`
	Degraded          bool                                 `json:"degraded"`
	MissingCurrencies []string                             `json:"missingCurrencies,omitempty"`
	From              *time.Time                           `json:"from,omitempty"`
	To                *time.Time                           `json:"to,omitempty"`
	GeneratedAt       time.Time                            `json:"generatedAt"`
}

// ToRevenueResponse converts an aggregate, rounding amounts for display
func ToRevenueResponse(agg *report.RevenueAggregate) RevenueResponse {
	resp := RevenueResponse{
		OrganizationID:    agg.OrganizationID.String(),
		Currency:          agg.ReportingCurrency.String(),
		Total:             agg.TotalConverted.Round(displayPlaces),
		OrderCount:        agg.OrderCount,
		CurrencyBreakdown: make(map[string]CurrencyBreakdownResponse, len(agg.CurrencyBreakdown)),
		Degraded:          agg.Degraded,
		From:              agg.Period.From,
		To:                agg.Period.To,
		GeneratedAt:       agg.GeneratedAt,
	}
	for c, g := range agg.CurrencyBreakdown {
		entry := CurrencyBreakdownResponse{
			OriginalSum:  g.Native.Round(displayPlaces),
			ConvertedSum: g.Converted.Round(displayPlaces),
			OrderCount:   g.OrderCount,
			Converted:    g.IsConverted,
			Note:         g.Note,
		}
		if g.IsConverted {
			rate := g.Rate
			entry.Rate = &rate
		}
		resp.CurrencyBreakdown[c.String()] = entry
	}
	for _, c := range agg.MissingCurrencies {
		resp.MissingCurrencies = append(resp.MissingCurrencies, c.String())
	}
	return resp
}
