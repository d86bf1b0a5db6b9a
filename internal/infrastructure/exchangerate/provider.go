package exchangerate

import (
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/infrastructure/cache"
	"github.com/erp/storesync/internal/infrastructure/config"
)

// NewFromConfig assembles the provider used by reporting: the HTTP service
// (when a URL is configured) followed by static rates, behind the rate cache.
func NewFromConfig(cfg config.ExchangeRateConfig, rateCache cache.RateCache, logger *zap.Logger) (report.ExchangeRateProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	static, err := NewStaticProvider(cfg.StaticRates)
	if err != nil {
		return nil, err
	}

	var remote report.ExchangeRateProvider
	if cfg.ProviderURL != "" {
		remote = NewHTTPProvider(cfg.ProviderURL, cfg.APIKey, cfg.Timeout, logger)
	}

	logger.Info("exchange rate providers configured",
		zap.Bool("http", remote != nil),
		zap.Int("static_pairs", static.Len()),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	chain := NewChainProvider(logger, remote, static)
	if rateCache == nil {
		return chain, nil
	}
	return NewCachedProvider(chain, rateCache, cfg.CacheTTL, logger), nil
}
