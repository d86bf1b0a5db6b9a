package exchangerate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/infrastructure/cache"
)

// CachedProvider memoizes rates of the wrapped provider per organization and pair.
// Cache failures are logged and bypassed; only successful lookups are cached.
type CachedProvider struct {
	next   report.ExchangeRateProvider
	cache  cache.RateCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps next with cache
func NewCachedProvider(next report.ExchangeRateProvider, c cache.RateCache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{next: next, cache: c, ttl: ttl, logger: logger}
}

// CacheKey builds the cache key of a pair for an organization
func CacheKey(orgID uuid.UUID, from, to valueobject.Currency) string {
	return fmt.Sprintf("%s:%s:%s", orgID, from, to)
}

// Rate returns the cached rate or fetches and caches it
func (p *CachedProvider) Rate(ctx context.Context, from, to valueobject.Currency, orgID uuid.UUID) (decimal.Decimal, error) {
	key := CacheKey(orgID, from, to)

	rate, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("exchange rate cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return rate, nil
	}

	rate, err = p.next.Rate(ctx, from, to, orgID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := p.cache.Set(ctx, key, rate, p.ttl); err != nil {
		p.logger.Warn("exchange rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rate, nil
}

var _ report.ExchangeRateProvider = (*CachedProvider)(nil)
