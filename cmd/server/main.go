package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pricingapp "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/erp/pricing/internal/infrastructure/cache"
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/persistence"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/erp/pricing/internal/interfaces/http/handler"
	"github.com/erp/pricing/internal/interfaces/http/middleware"
	"github.com/erp/pricing/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting pricing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	startupCtx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(startupCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(startupCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	var meter metric.Meter
	pricingMetrics := telemetry.NewNoopPricingMetrics()
	if mp.IsEnabled() {
		meter = mp.Meter(telemetry.MeterName)
		pricingMetrics, err = telemetry.NewPricingMetrics(meter)
		if err != nil {
			log.Fatal("Failed to register pricing metrics", zap.Error(err))
		}
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))

	var poolMetrics *telemetry.DBPoolMetrics
	if meter != nil {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
		}
		if poolMetrics, err = telemetry.NewDBPoolMetrics(meter, sqlDB.Stats); err != nil {
			log.Fatal("Failed to register database pool metrics", zap.Error(err))
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:    true,
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
			DBName:     cfg.Database.DBName,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// SQLite has no migration tooling; postgres schemas come from cmd/migrate
	if db.Driver() == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	// Adapters and context caches
	ruleStore := persistence.NewGormRuleStore(db.DB)
	catalog := persistence.NewGormCatalogProvider(db.DB, valueobject.Currency(cfg.Pricing.Currency))
	directory := persistence.NewGormCustomerDirectory(db.DB)

	var (
		contextCache   cache.ContextCache
		productSource  pricing.CatalogProvider   = catalog
		customerSource pricing.CustomerDirectory = directory
	)
	if cfg.Pricing.ContextCacheTTL > 0 || cfg.Pricing.CustomerContextCacheTTL > 0 {
		contextCache, err = cache.NewContextCacheFactory(cfg.Redis,
			cache.WithFactoryLogger(log),
			cache.WithInMemoryFallback(true),
		).CreateCache()
		if err != nil {
			log.Fatal("Failed to create pricing context cache", zap.Error(err))
		}
	}
	if cfg.Pricing.ContextCacheTTL > 0 {
		productSource = cache.NewCachedCatalogProvider(catalog, contextCache,
			cache.WithTTL(cfg.Pricing.ContextCacheTTL),
			cache.WithLogger(log),
			cache.WithLookupRecorder(pricingMetrics),
		)
	}
	if cfg.Pricing.CustomerContextCacheTTL > 0 {
		customerSource = cache.NewCachedCustomerDirectory(directory, contextCache,
			cache.WithTTL(cfg.Pricing.CustomerContextCacheTTL),
			cache.WithLogger(log),
			cache.WithLookupRecorder(pricingMetrics),
		)
	}

	// Engine and application service
	engine := pricing.NewEngine(ruleStore,
		pricing.WithLogger(log),
		pricing.WithMinorUnits(cfg.Pricing.CurrencyDecimals),
		pricing.WithMarginGuard(cfg.Pricing.MarginCheckEnabled, cfg.Pricing.MinMarginPercent),
		pricing.WithInconsistentRulePolicy(pricing.InconsistentRulePolicy(cfg.Pricing.InconsistentRulePolicy)),
	)
	priceService := pricingapp.NewPriceService(productSource, customerSource, engine,
		pricingapp.WithLogger(log),
		pricingapp.WithMetrics(pricingMetrics),
		pricingapp.WithBatchLimits(cfg.Pricing.BatchConcurrency, cfg.Pricing.MaxBatchSize),
	)

	// HTTP
	ginEngine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          meter,
		CORS: middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
			MaxAge:       12 * time.Hour,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	healthHandler := handler.NewHealthHandler(db, telemetry.ServiceVersion)
	ginEngine.GET("/health", healthHandler.Health)

	router.NewRouter(ginEngine).
		Register(handler.NewPricingHandler(priceService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := poolMetrics.Stop(); err != nil {
		log.Error("Error stopping database pool metrics", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if contextCache != nil {
		if err := contextCache.Close(); err != nil {
			log.Error("Error closing pricing context cache", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
