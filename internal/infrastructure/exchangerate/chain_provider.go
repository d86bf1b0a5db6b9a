package exchangerate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
)

// ChainProvider asks each provider in order and returns the first rate found
type ChainProvider struct {
	providers []report.ExchangeRateProvider
	logger    *zap.Logger
}

// NewChainProvider creates a chain. Nil providers are skipped.
func NewChainProvider(logger *zap.Logger, providers ...report.ExchangeRateProvider) *ChainProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	list := make([]report.ExchangeRateProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	return &ChainProvider{providers: list, logger: logger}
}

// Rate returns the first successful rate. When every provider fails the
// result wraps report.ErrRateUnavailable together with each failure.
func (c *ChainProvider) Rate(ctx context.Context, from, to valueobject.Currency, orgID uuid.UUID) (decimal.Decimal, error) {
	if len(c.providers) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no providers configured", report.ErrRateUnavailable)
	}

	errs := make([]error, 0, len(c.providers))
	for i, p := range c.providers {
		rate, err := p.Rate(ctx, from, to, orgID)
		if err == nil {
			return rate, nil
		}
		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
		c.logger.Debug("exchange rate provider failed",
			zap.Int("provider", i),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err),
		)
		errs = append(errs, err)
	}

	joined := errors.Join(errs...)
	if errors.Is(joined, report.ErrRateUnavailable) {
		return decimal.Zero, joined
	}
	return decimal.Zero, errors.Join(report.ErrRateUnavailable, joined)
}

var _ report.ExchangeRateProvider = (*ChainProvider)(nil)
