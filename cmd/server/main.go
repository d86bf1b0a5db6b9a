package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appintegration "github.com/erp/storesync/internal/application/integration"
	partnerapp "github.com/erp/storesync/internal/application/partner"
	reportapp "github.com/erp/storesync/internal/application/report"
	tradeapp "github.com/erp/storesync/internal/application/trade"
	"github.com/erp/storesync/internal/infrastructure/cache"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/ecommerce"
	"github.com/erp/storesync/internal/infrastructure/event"
	"github.com/erp/storesync/internal/infrastructure/exchangerate"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/persistence"
	"github.com/erp/storesync/internal/infrastructure/scheduler"
	"github.com/erp/storesync/internal/infrastructure/secrets"
	"github.com/erp/storesync/internal/infrastructure/storage"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
	"github.com/erp/storesync/internal/interfaces/http/handler"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/erp/storesync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/erp/storesync/docs"
)

//	@title			StoreSync API
//	@version		1.0
//	@description	Keeps the customers and orders of an organization in sync with its stores on a remote commerce platform.

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/storesync

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	TenantID
//	@in							header
//	@name						X-Tenant-ID
//	@description				Organization of the caller

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.Telemetry.ServiceName,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log bridge is teed into the main logger once it exists
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err := logger.New(logCfg, loggerProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
		_ = loggerProvider.Shutdown(context.Background())
	}()

	log.Info("Starting storesync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.ServiceVersion),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(cfg.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link profiles to spans", zap.Error(err))
		}
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Log.SlowQuery),
		logger.WithSQL(cfg.Log.SQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, cfg.Database.Driver, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverSQLite {
		// sqlite has no SQL migrations; the schema comes from the models
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	cipher, err := newCredentialCipher(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}

	// Leases and rate cache
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()
	leases, err := cacheFactory.CreateLeaseManager(cfg.Sync.LeaseBackend)
	if err != nil {
		log.Fatal("Failed to create lease manager", zap.Error(err))
	}
	log.Info("Sync leases ready",
		zap.String("backend", cfg.Sync.LeaseBackend),
		zap.Bool("redis", cacheFactory.UsesRedis()),
	)

	// Repositories
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	storeRepo := persistence.NewGormStoreRepository(db.DB, cipher)
	syncStateRepo := persistence.NewGormSyncStateRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Remote platform
	var clientOpts []ecommerce.FactoryOption
	if cfg.Telemetry.Enabled {
		clientOpts = append(clientOpts, ecommerce.WithTracing())
	}
	clients, err := ecommerce.NewClientFactory(ecommerce.ClientConfig{
		UserAgent:   cfg.Remote.UserAgent,
		TokenTTL:    cfg.Remote.TokenTTL,
		CallTimeout: cfg.Sync.RemoteCallTimeout,
		PageSize:    cfg.Sync.PageSize,
	}, log, clientOpts...)
	if err != nil {
		log.Fatal("Failed to create remote client factory", zap.Error(err))
	}

	rates, err := exchangerate.NewFromConfig(cfg.ExchangeRate, cacheFactory.CreateRateCache(), log)
	if err != nil {
		log.Fatal("Failed to configure exchange rates", zap.Error(err))
	}

	// Event bus: job summaries are logged and archived after the fact
	eventBus := event.NewInMemoryEventBus(log,
		event.WithAsyncDelivery(256),
		event.WithHandlerTimeout(30*time.Second),
	)
	eventBus.Subscribe(event.NewLoggingHandler(log))
	eventBus.Subscribe(appintegration.NewArchiveHandler(newSummaryArchive(ctx, cfg, log), log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Sync workers
	pool, err := scheduler.NewWorkerPool(scheduler.PoolConfig{
		Workers:         cfg.Sync.Workers,
		QueueSize:       cfg.Sync.QueueSize,
		ShutdownTimeout: cfg.Sync.ShutdownTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start worker pool", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
		defer cancel()
		if err := pool.Stop(stopCtx); err != nil {
			log.Error("Error stopping worker pool", zap.Error(err))
		}
	}()

	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider, pool)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}
	defer func() {
		_ = syncMetrics.Close()
	}()

	orchestrator := appintegration.NewSyncOrchestrator(appintegration.OrchestratorDeps{
		Organizations: orgRepo,
		Stores:        storeRepo,
		SyncStates:    syncStateRepo,
		Clients:       clients,
		Leases:        leases,
		Queue:         pool,
		Events:        eventBus,
		Metrics:       syncMetrics,
		Bindings: []appintegration.EntityBinding{
			appintegration.NewCustomerBinding(customerRepo),
			appintegration.NewOrderBinding(orderRepo),
		},
	}, appintegration.OrchestratorConfig{
		JobTimeout:     cfg.Sync.JobTimeout,
		LeaseTTL:       cfg.Sync.LeaseTTL,
		RecordLeaseTTL: cfg.Sync.RecordLeaseTTL,
		HistorySize:    cfg.Sync.HistorySize,
	}, log)

	// Application services
	customerService := partnerapp.NewCustomerService(customerRepo, storeRepo, orchestrator, eventBus)
	orderService := tradeapp.NewOrderService(orderRepo, storeRepo, orchestrator)
	revenue := reportapp.NewCurrencyNormalizer(orderRepo, orgRepo, rates, log)
	revenue.SetMetrics(syncMetrics)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := router.NewEngine(router.EngineConfig{
		HTTP:    cfg.HTTP,
		Swagger: cfg.Swagger,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Profiling: middleware.ProfilingConfig{
			Enabled:          cfg.Profiling.Enabled,
			SkipPathPrefixes: middleware.DefaultProfilingConfig().SkipPathPrefixes,
		},
		Meter: meterProvider,
		Organizations: middleware.OrganizationValidatorFunc(func(ctx context.Context, id uuid.UUID) error {
			_, err := orgRepo.FindByID(ctx, id)
			return err
		}),
		Logger: log,
	}, router.Handlers{
		Sync:     handler.NewSyncHandler(orchestrator),
		Customer: handler.NewCustomerHandler(customerService),
		Order:    handler.NewOrderHandler(orderService),
		Report:   handler.NewReportHandler(revenue),
		Health: handler.NewHealthHandler(telemetry.ServiceVersion, 2*time.Second,
			handler.HealthCheck{Name: "database", Check: db.HealthCheck},
			handler.HealthCheck{Name: "redis", Check: cacheFactory.Ping},
		),
	})
	defer engine.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop accepting requests, then the deferred calls
	// drain the worker pool before the event bus and the database close.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newCredentialCipher returns the cipher sealing store API secrets. Without
// a configured key (only allowed outside production) the key is derived from
// the app name, which is fine for local data only.
func newCredentialCipher(cfg *config.Config, log *zap.Logger) (*secrets.CredentialCipher, error) {
	if cfg.Secrets.CredentialKey != "" {
		return secrets.NewCredentialCipher(cfg.Secrets.CredentialKey)
	}
	log.Warn("secrets.credential_key is not set, deriving a development key")
	return secrets.NewDerivedCipher(cfg.App.Name, "storesync-dev")
}

// newSummaryArchive returns the S3 archive when enabled. Archiving never
// blocks startup: on error the reports are discarded.
func newSummaryArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) appintegration.SummaryArchive {
	if !cfg.Archive.Enabled {
		return storage.NewNoopSummaryArchive()
	}
	archive, err := storage.NewS3SummaryArchive(ctx, &cfg.Archive, storage.WithLogger(log))
	if err != nil {
		log.Error("S3 archive unavailable, sync reports will not be archived", zap.Error(err))
		return storage.NewNoopSummaryArchive()
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		log.Warn("S3 archive bucket check failed, uploads may fail", zap.Error(err))
	}
	log.Info("Archiving sync reports", zap.String("bucket", archive.GetBucket()))
	return archive
}
