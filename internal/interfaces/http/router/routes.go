package router

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
	"github.com/erp/storesync/internal/interfaces/http/handler"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers served by the engine
type Handlers struct {
	Sync     *handler.SyncHandler
	Customer *handler.CustomerHandler
	Order    *handler.OrderHandler
	Report   *handler.ReportHandler
	Health   *handler.HealthHandler
}

// EngineConfig holds what the middleware stack needs
type EngineConfig struct {
	HTTP      config.HTTPConfig
	Swagger   config.SwaggerConfig
	Tracing   middleware.TracingConfig
	Profiling middleware.ProfilingConfig
	// Meter is optional; nil disables HTTP metrics
	Meter *telemetry.MeterProvider
	// Organizations validates the X-Tenant-ID header when set
	Organizations middleware.OrganizationValidator
	Logger        *zap.Logger
}

// Engine is the configured gin engine plus the resources it owns
type Engine struct {
	*gin.Engine
	limiters []*middleware.RateLimiter
}

// Close stops the background work of the engine's rate limiters
func (e *Engine) Close() {
	for _, l := range e.limiters {
		l.Stop()
	}
}

// NewEngine builds the gin engine with the middleware stack and every route.
//
// Middleware order:
//  1. Recovery
//  2. RequestID
//  3. Tracing (otelgin + span attributes)
//  4. Logger
//  5. Metrics, profiling labels
//  6. Security headers, CORS, body limit
func NewEngine(cfg EngineConfig, h Handlers) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing)...)
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	engine.Use(middleware.Profiling(cfg.Profiling))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	e := &Engine{Engine: engine}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine, WithAPIVersion("v1"))

	var syncTrigger []gin.HandlerFunc
	if cfg.HTTP.SyncRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.SyncRateLimit, cfg.HTTP.SyncRateWindow)
		e.limiters = append(e.limiters, limiter)
		syncTrigger = append(syncTrigger, middleware.RateLimitByKey(limiter, middleware.StoreRateLimitKey))
		log.Info("Sync trigger rate limiting enabled",
			zap.Int("requests", cfg.HTTP.SyncRateLimit),
			zap.Duration("window", cfg.HTTP.SyncRateWindow),
		)
	}

	optionalTenant := middleware.Tenant(middleware.TenantConfig{
		Required:  false,
		Validator: cfg.Organizations,
		Logger:    log,
	})
	requiredTenant := middleware.Tenant(middleware.TenantConfig{
		Required:  true,
		Validator: cfg.Organizations,
		Logger:    log,
	})

	if h.Sync != nil {
		syncRoutes := NewDomainGroup("sync", "/sync").Use(optionalTenant)
		syncRoutes.GET("/jobs", h.Sync.ListJobs)
		syncRoutes.GET("/jobs/:jobId", h.Sync.GetJob)
		syncRoutes.POST("/:storeId/:organizationId", append(syncTrigger, h.Sync.StartSync)...)
		r.Register(syncRoutes)
	}

	if h.Customer != nil {
		customers := NewDomainGroup("customers", "/customers").
			Use(requiredTenant, handler.EntityScope(integration.EntityTypeCustomer))
		customers.POST("", h.Customer.Create)
		customers.GET("/:id", h.Customer.GetByID)
		customers.PUT("/:id", h.Customer.Update)
		customers.DELETE("/:id", h.Customer.Delete)
		registerRecordSyncRoutes(customers, h.Sync)
		r.Register(customers)
	}

	if h.Order != nil {
		orders := NewDomainGroup("orders", "/orders").
			Use(requiredTenant, handler.EntityScope(integration.EntityTypeOrder))
		orders.POST("", h.Order.Create)
		orders.GET("/:id", h.Order.GetByID)
		orders.PUT("/:id", h.Order.Update)
		orders.DELETE("/:id", h.Order.Delete)
		registerRecordSyncRoutes(orders, h.Sync)
		r.Register(orders)
	}

	if h.Report != nil {
		reports := NewDomainGroup("reports", "/reports").Use(requiredTenant)
		reports.GET("/revenue", h.Report.Revenue)
		r.Register(reports)
	}

	r.Setup()
	return e
}

// registerRecordSyncRoutes adds the per-record and per-store sync routes to
// an entity group. The group's EntityScope decides the entity type.
func registerRecordSyncRoutes(dg *DomainGroup, sync *handler.SyncHandler) {
	if sync == nil {
		return
	}
	dg.POST("/:id/retry-sync", sync.RetrySync)
	dg.GET("/:id/sync-state", sync.GetSyncState)
	dg.DELETE("/store/:storeId", sync.DeleteAllByStore)
	dg.GET("/store/:storeId/sync-status", sync.StoreSyncStatus)
}
