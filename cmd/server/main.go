package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/moneyflow/ledger/internal/adapter/http"
	"github.com/moneyflow/ledger/internal/adapter/http/handler"
	postgresRepo "github.com/moneyflow/ledger/internal/adapter/repository/postgres"
	redisRepo "github.com/moneyflow/ledger/internal/adapter/repository/redis"
	"github.com/moneyflow/ledger/internal/infrastructure/config"
	"github.com/moneyflow/ledger/internal/infrastructure/eventpublisher"
	"github.com/moneyflow/ledger/internal/infrastructure/logger"
	"github.com/moneyflow/ledger/internal/infrastructure/metrics"
	"github.com/moneyflow/ledger/internal/infrastructure/postgres"
	"github.com/moneyflow/ledger/internal/infrastructure/redis"
	"github.com/moneyflow/ledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	logg := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "ledger",
	})
	log.Logger = logg

	ctx := context.Background()

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logg.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	logg.Info().Msg("connected to postgres")

	// Connect to Redis (optional)
	var redisClient *goredis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logg.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		logg.Info().Msg("connected to redis")
	}

	// Shared infrastructure
	m := metrics.New()
	txManager := postgresRepo.NewTxManager(pool)
	eventStore := postgresRepo.NewEventStore(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(logg)

	var cache usecase.Cache
	if redisClient != nil {
		cache = redisRepo.NewCache(redisClient)
	}

	ledgerSvc := usecase.NewLedgerService(idGen, logg, m)

	// Each request gets its own unit of work with a freshly bound repository,
	// so transaction connections never leak across requests.
	units := func() *handler.Unit {
		journalRepo := postgresRepo.NewJournalRepository(pool)
		uow := usecase.NewUnitOfWork(txManager, eventStore, idGen, logg, m)
		uow.RegisterRepository(journalRepo)

		return &handler.Unit{
			UoW:    uow,
			Ledger: usecase.NewTransactionLedgerService(ledgerSvc, journalRepo, cache, logg, m),
		}
	}

	// Initialize handlers
	transactionHandler := handler.NewTransactionHandler(units, retrier)
	ledgerHandler := handler.NewLedgerHandler(units, retrier)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler: transactionHandler,
		LedgerHandler:      ledgerHandler,
		HealthHandler:      healthHandler,
		Logger:             logg,
	})

	// Start outbox relay
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	relay := eventpublisher.NewRelay(eventpublisher.Config{
		Source:    eventStore,
		Publisher: eventpublisher.NewLogPublisher(logg),
		Logger:    logg,
		Metrics:   m,
		BatchSize: cfg.OutboxBatchSize,
		Interval:  cfg.OutboxPollInterval,
	})
	go func() {
		if err := relay.Start(relayCtx); err != nil {
			logg.Error().Err(err).Msg("outbox relay stopped")
		}
	}()

	// Prune relayed events past the retention window
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-relayCtx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().AddDate(0, 0, -cfg.OutboxRetentionDays)
				if err := eventStore.DeletePublished(relayCtx, cutoff); err != nil {
					logg.Warn().Err(err).Msg("failed to prune published events")
				}
			}
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logg.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info().Msg("shutting down server...")

	stopRelay()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logg.Info().Msg("server stopped")
}
