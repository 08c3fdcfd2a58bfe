package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/notification"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/idempotency"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/storage"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Product catalog, categories, suppliers and the stock adjustment ledger
//	@BasePath		/api/v1

func main() {
	seedDefaults := flag.Bool("seed-defaults", false, "Create the default categories and suppliers when the inventory is empty")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.FromAppConfig(cfg.App, cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	log = providers.BridgeLogger(log, zapcore.InfoLevel)

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("version", version),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Open the key/value store holding the collections
	backend, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing storage", zap.Error(err))
		}
	}()

	// Event bus and subscribers
	bus := event.NewInMemoryEventBus(log, event.WithMetrics(registry))
	feed := notification.NewFeed(notification.DefaultFeedCapacity)
	emitter := notification.NewEmitter(log).
		AddNotifySink(feed).
		AddNotifySink(notification.NewLogSink(log)).
		AddToastSink(feed)
	bus.Subscribe(notification.NewNotificationHandler(emitter, log))
	bus.Subscribe(notification.NewToastHandler(emitter, log))

	// Persistence manager
	managerOpts := []persistence.ManagerOption{
		persistence.WithEventPublisher(bus),
		persistence.WithMetrics(persistence.NewMetrics(registry)),
		persistence.WithLogger(log),
	}
	var archive *storage.S3ImageArchive
	if cfg.ObjectStorage.Enabled {
		archive, err = storage.NewS3ImageArchive(ctx, cfg.ObjectStorage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize image archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare image archive bucket", zap.Error(err))
		}
		managerOpts = append(managerOpts, persistence.WithImageArchive(archive))
	}
	manager := persistence.NewManager(backend.store, persistence.Config{
		KeyPrefix:           cfg.Storage.KeyPrefix,
		CeilingBytes:        cfg.Persistence.CeilingBytes,
		SoftKeep:            cfg.Persistence.SoftKeep,
		HardKeepProducts:    cfg.Persistence.HardKeepProducts,
		HardKeepAdjustments: cfg.Persistence.HardKeepAdjustments,
		OptimizeThreshold:   cfg.Persistence.OptimizeThreshold,
	}, managerOpts...)

	// Inventory store and service
	policy, err := inventory.ParseResolutionPolicy(cfg.Inventory.ResolutionPolicy)
	if err != nil {
		log.Fatal("Invalid invoice resolution policy", zap.Error(err))
	}
	storeOpts := []inventory.StoreOption{
		inventory.WithResolutionPolicy(policy),
		inventory.WithImageCompressor(
			persistence.NewImageCompressor(cfg.Images.MaxWidth, cfg.Images.Quality,
				persistence.WithMaxPixels(cfg.Images.MaxPixels)),
			cfg.Images.CompressThreshold,
		),
		inventory.WithDefaultUser(cfg.Inventory.DefaultUser),
	}
	if cfg.Inventory.DefaultReorderLevel >= 0 {
		storeOpts = append(storeOpts, inventory.WithDefaultReorderLevel(decimal.NewFromInt(int64(cfg.Inventory.DefaultReorderLevel))))
	}
	service := inventoryapp.NewInventoryService(inventory.NewInventoryStore(storeOpts...), manager, log)
	service.SetEventPublisher(bus)
	service.SetImageFetcher(manager)

	// Applied invoices are remembered so a replayed payment releases no stock
	if backend.redis != nil {
		service.SetInvoiceGuard(idempotency.NewRedisStore(backend.redis.Client(), cfg.Storage.KeyPrefix, cfg.Inventory.InvoiceReplayTTL))
	} else {
		invoices := idempotency.NewMemoryStore(cfg.Inventory.InvoiceReplayTTL)
		defer invoices.Close()
		service.SetInvoiceGuard(invoices)
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(providers.Meter("stock-ledger"), func() inventory.Stats {
		return service.Stats(context.Background())
	})
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}
	defer func() {
		_ = ledgerMetrics.Close()
	}()
	bus.Subscribe(ledgerMetrics)

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		_ = bus.Stop(context.Background())
	}()

	// Load the persisted inventory
	if err := service.Load(ctx); err != nil {
		log.Fatal("Failed to load inventory", zap.Error(err))
	}
	if cfg.Inventory.SeedDefaults || *seedDefaults {
		seeded, err := service.InitializeDefaults(ctx)
		if err != nil {
			log.Fatal("Failed to seed defaults", zap.Error(err))
		}
		log.Info("Default registries checked", zap.Bool("seeded", seeded))
	}

	// Rate limiting
	var limiter middleware.Limiter
	if cfg.HTTP.RateLimit > 0 {
		if backend.redis != nil {
			limiter = middleware.NewRedisRateLimiter(backend.redis.Client(), cfg.Storage.KeyPrefix, cfg.HTTP.RateLimit, time.Minute)
		} else {
			memLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, time.Minute)
			defer memLimiter.Stop()
			limiter = memLimiter
		}
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Limiter:        limiter,
		Registry:       registry,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(service, feed, cfg.App.Name, version)
	for name, check := range backend.checks {
		systemHandler.AddCheck(name, check)
	}
	if archive != nil {
		systemHandler.AddCheck("image_archive", archive.Ping)
	}

	router.Mount(engine, router.Handlers{
		Products:    handler.NewProductHandler(service),
		Categories:  handler.NewCategoryHandler(service),
		Suppliers:   handler.NewSupplierHandler(service),
		Adjustments: handler.NewAdjustmentHandler(service),
		System:      systemHandler,
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
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited")
}
