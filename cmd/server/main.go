package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fulfillapp "github.com/dropship/backend/internal/application/fulfillment"
	ledgerapp "github.com/dropship/backend/internal/application/ledger"
	"github.com/dropship/backend/internal/application/ordersync"
	quotaapp "github.com/dropship/backend/internal/application/quota"
	storeapp "github.com/dropship/backend/internal/application/store"
	webhookapp "github.com/dropship/backend/internal/application/webhook"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/infrastructure/auth"
	"github.com/dropship/backend/internal/infrastructure/cache"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/dropship/backend/internal/infrastructure/event"
	"github.com/dropship/backend/internal/infrastructure/lock"
	"github.com/dropship/backend/internal/infrastructure/logger"
	"github.com/dropship/backend/internal/infrastructure/payment"
	"github.com/dropship/backend/internal/infrastructure/persistence"
	"github.com/dropship/backend/internal/infrastructure/scheduler"
	"github.com/dropship/backend/internal/infrastructure/storefront"
	"github.com/dropship/backend/internal/infrastructure/supplier"
	"github.com/dropship/backend/internal/infrastructure/telemetry"
	"github.com/dropship/backend/internal/interfaces/http/handler"
	"github.com/dropship/backend/internal/interfaces/http/middleware"
	"github.com/dropship/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting dropship backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	if cfg.Telemetry.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(ctx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis-backed dedup and locking, with in-process fallbacks for
	// single-node deployments without Redis
	var (
		dedupStore shared.IdempotencyStore
		keyedLock  shared.KeyedLock
	)
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		dedupStore = cache.NewRedisIdempotencyStore(redisClient, "dropship")
		keyedLock = lock.NewRedisKeyedLock(redisClient, "dropship", log)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		dedupStore = cache.NewInMemoryIdempotencyStore()
		keyedLock = lock.NewInMemoryKeyedLock()
		log.Warn("Redis not configured, using in-process dedup and locking")
	}

	// Repositories
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	supplierOrderRepo := persistence.NewGormSupplierOrderRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Platform and supplier integrations
	storefrontTransport := storefront.NewStaticTransport()
	platformRegistry := storefront.NewRegistry(
		storefront.NewShopifyAdapter(storefrontTransport),
		storefront.NewWooCommerceAdapter(storefrontTransport),
		storefront.NewEbayAdapter(storefrontTransport),
	)

	supplierDirectory, err := supplier.NewConfigDirectory(cfg.Supplier.Directory)
	if err != nil {
		log.Fatal("Failed to build supplier directory", zap.Error(err))
	}
	supplierRegistry := supplier.NewRegistry(
		supplier.NewAliExpressAdapter(
			cfg.Supplier.BaseURLs["ALIEXPRESS"], cfg.Supplier.APIKeys["ALIEXPRESS"],
			cfg.Supplier.RateLimit, cfg.Supplier.RateBurst),
		supplier.NewCJDropshippingAdapter(
			cfg.Supplier.BaseURLs["CJDROPSHIPPING"], cfg.Supplier.APIKeys["CJDROPSHIPPING"],
			cfg.Supplier.RateLimit, cfg.Supplier.RateBurst),
		supplier.NewSpocketAdapter(
			cfg.Supplier.BaseURLs["SPOCKET"], cfg.Supplier.APIKeys["SPOCKET"],
			cfg.Supplier.RateLimit, cfg.Supplier.RateBurst),
	)

	verifierRegistry := payment.NewRegistryFromSecrets(cfg.Webhook.Secrets, cfg.Webhook.StripeTolerance)

	// Application services
	quotaService := quotaapp.NewService(storeRepo, orderRepo, log)
	ledgerService := ledgerapp.NewService(ledgerRepo, storeRepo, log)
	syncService := ordersync.NewService(
		storeRepo, orderRepo, platformRegistry, ledgerService, quotaService, eventBus, keyedLock, log)
	fulfillmentService := fulfillapp.NewService(
		orderRepo, supplierOrderRepo, supplierDirectory, supplierRegistry, keyedLock, eventBus,
		fulfillapp.Config{
			PlacementTimeout: cfg.Dispatch.PlacementTimeout,
			MaxAttempts:      cfg.Dispatch.MaxAttempts,
			RetryBackoff:     cfg.Dispatch.RetryBackoff,
			BulkConcurrency:  cfg.Dispatch.BulkConcurrency,
			LockTTL:          cfg.Dispatch.LockTTL,
		}, log)
	storeService := storeapp.NewService(storeRepo, orderRepo, quotaService, eventBus, log)

	// Webhook gateway
	ingestService := webhookapp.NewIngestService(
		webhookEventRepo, verifierRegistry, dedupStore, cfg.Webhook.DedupTTL, log)
	eventRouter := webhookapp.NewDefaultRouter(syncService, ledgerService, log)
	processor := webhookapp.NewProcessor(webhookEventRepo, eventRouter, webhookapp.ProcessorConfig{
		PollInterval:     cfg.Webhook.PollInterval,
		BatchSize:        cfg.Webhook.BatchSize,
		CleanupRetention: cfg.Webhook.CleanupRetention,
	}, log)
	if cfg.Webhook.ProcessorEnabled {
		processor.Start(context.Background())
		defer processor.Stop()
		log.Info("Webhook processor started",
			zap.Duration("poll_interval", cfg.Webhook.PollInterval),
			zap.Int("batch_size", cfg.Webhook.BatchSize),
		)
	}

	// Periodic jobs
	if cfg.Scheduler.Enabled {
		jobs, err := scheduler.New(cfg.Scheduler, fulfillmentService, syncService,
			operationalStoreLister{repo: storeRepo}, log)
		if err != nil {
			log.Fatal("Failed to build scheduler", zap.Error(err))
		}
		jobs.Start()
		defer jobs.Stop()
		log.Info("Scheduler started",
			zap.String("sweep_schedule", cfg.Scheduler.SweepSchedule),
			zap.String("sync_schedule", cfg.Scheduler.SyncSchedule),
		)
	}

	// HTTP interface
	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	authConfig := middleware.DefaultAuthConfig(jwtService)
	authConfig.Logger = log
	r.Use(middleware.JWTAuthWithConfig(authConfig))

	r.Register(handler.NewSystemHandler(version)).
		Register(handler.NewWebhookHandler(ingestService, processor)).
		Register(handler.NewStoreHandler(storeService, syncService)).
		Register(handler.NewOrderHandler(orderRepo, fulfillmentService)).
		Register(handler.NewLedgerHandler(ledgerService))
	r.Setup()

	// Liveness probe outside API versioning
	engine.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// operationalStoreLister feeds the scheduler the stores eligible for
// periodic sync
type operationalStoreLister struct {
	repo *persistence.GormStoreRepository
}

func (l operationalStoreLister) ListSyncable(ctx context.Context) ([]scheduler.SyncTarget, error) {
	stores, err := l.repo.ListOperational(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]scheduler.SyncTarget, 0, len(stores))
	for _, st := range stores {
		targets = append(targets, scheduler.SyncTarget{StoreID: st.ID, Name: st.Name})
	}
	return targets, nil
}
