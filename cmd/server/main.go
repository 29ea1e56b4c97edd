package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	financeapp "github.com/pesaflow/backend/internal/application/finance"
	"github.com/pesaflow/backend/internal/application/settlement"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/infrastructure/cache"
	"github.com/pesaflow/backend/internal/infrastructure/config"
	"github.com/pesaflow/backend/internal/infrastructure/event"
	"github.com/pesaflow/backend/internal/infrastructure/gateway"
	"github.com/pesaflow/backend/internal/infrastructure/logger"
	"github.com/pesaflow/backend/internal/infrastructure/persistence"
	"github.com/pesaflow/backend/internal/interfaces/http/handler"
	"github.com/pesaflow/backend/internal/interfaces/http/router"
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
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PesaFlow settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	// Repositories and unit of work
	repos := persistence.NewRepos(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Deduplication fast path (optional)
	var dedupCache shared.IdempotencyStore
	dedupConfig := shared.DefaultIdempotencyConfig()
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = store.Close()
		}()
		dedupCache = store
		if cfg.Redis.DedupTTL > 0 {
			dedupConfig.TTL = cfg.Redis.DedupTTL
		}
	} else {
		store := cache.NewInMemoryIdempotencyStore()
		defer func() {
			_ = store.Close()
		}()
		dedupCache = store
	}

	// Daraja C2B URL registration, skipped when no gateway credentials are
	// configured (local development, tests against seeded data)
	if cfg.Mpesa.ConsumerKey != "" {
		daraja, err := gateway.NewDarajaClient(&gateway.Config{
			BaseURL:          cfg.Mpesa.BaseURL,
			ConsumerKey:      cfg.Mpesa.ConsumerKey,
			ConsumerSecret:   cfg.Mpesa.ConsumerSecret,
			ShortCode:        cfg.Mpesa.ShortCode,
			TokenStaleWindow: cfg.Mpesa.TokenStaleWindow,
		})
		if err != nil {
			log.Fatal("Invalid Daraja configuration", zap.Error(err))
		}
		regCtx, regCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := daraja.RegisterC2BURLs(regCtx, cfg.Mpesa.ValidationURL, cfg.Mpesa.ConfirmationURL); err != nil {
			log.Warn("C2B URL registration failed, callbacks may not arrive", zap.Error(err))
		}
		regCancel()
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if cfg.Settlement.SaleCompletionURL != "" {
		completer := gateway.NewSalesWebhook(cfg.Settlement.SaleCompletionURL)
		eventBus.Subscribe(settlement.NewSaleCompletionHandler(completer, log.Named("sales")))
	}

	// Application services
	settlementService := settlement.NewService(settlement.Config{
		UnitOfWork: uow,
		Repos:      repos,
		Rules: finance.SettlementRules{
			MaxTransactionAmount: cfg.Settlement.MaxTransactionLimit(),
			MaxDailyAmount:       cfg.Settlement.MaxDailyLimit(),
			Location:             cfg.Settlement.Location(),
		},
		DedupCache:  dedupCache,
		DedupConfig: dedupConfig,
		Events:      eventBus,
		Logger:      log.Named("settlement"),
	})
	invoiceService := financeapp.NewInvoiceService(uow, repos, log.Named("invoices"))
	integrityService := financeapp.NewIntegrityService(repos, log.Named("integrity"))

	// Handlers
	resolver := finance.NewTargetResolver(repos.Invoices, repos.Customers)
	handlers := router.Handlers{
		System:     handler.NewSystemHandler(db.Ping),
		Settlement: handler.NewSettlementHandler(settlementService, resolver, cfg.Settlement.Location()),
		Finance:    handler.NewFinanceHandler(invoiceService, integrityService, repos),
		Customer:   handler.NewCustomerHandler(repos),
	}

	engine := router.New(&cfg.HTTP, cfg.App.Env, log, handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
