package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iho/tokenbank/internal/adapter/gateway"
	httpAdapter "github.com/iho/tokenbank/internal/adapter/http"
	"github.com/iho/tokenbank/internal/adapter/http/handler"
	"github.com/iho/tokenbank/internal/adapter/http/middleware"
	"github.com/iho/tokenbank/internal/adapter/oracle"
	postgresRepo "github.com/iho/tokenbank/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/tokenbank/internal/adapter/repository/redis"
	"github.com/iho/tokenbank/internal/infrastructure/auth"
	"github.com/iho/tokenbank/internal/infrastructure/config"
	"github.com/iho/tokenbank/internal/infrastructure/eventpublisher"
	"github.com/iho/tokenbank/internal/infrastructure/logger"
	"github.com/iho/tokenbank/internal/infrastructure/metrics"
	"github.com/iho/tokenbank/internal/infrastructure/postgres"
	"github.com/iho/tokenbank/internal/infrastructure/redis"
	"github.com/iho/tokenbank/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	m := metrics.New()

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Apply migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Build the price oracle
	feed, err := oracle.NewFeed(cfg.OracleSpec())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid oracle configuration")
	}
	priceOracle := oracle.NewAdapter(feed, cfg.OracleMaxAge, appLogger, m)
	log.Info().Str("feed", priceOracle.Describe()).Msg("oracle ready")

	// Custody gateways
	tokenGateway := gateway.NewTokenClient(nil, cfg.TokenGatewayURL, appLogger, m)
	nativeGateway := gateway.NewNativeClient(nil, cfg.NativeGatewayURL, appLogger, m)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)
	bankRepo := postgresRepo.NewBankStateRepository(pool)
	operationRepo := postgresRepo.NewOperationRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	limits := usecase.Limits{Withdrawal: cfg.WithdrawalLimit, Capacity: cfg.CapacityLimit}
	converter := usecase.NewConverter(priceOracle)
	bankUC := usecase.NewBankUseCase(
		txManager, balanceRepo, bankRepo, operationRepo, outboxRepo,
		converter, tokenGateway, nativeGateway, idGen, m, limits,
	)
	oracleUC := usecase.NewOracleUseCase(priceOracle, txManager, outboxRepo, idGen, m)
	reconciliationUC := usecase.NewReconciliationUseCase(balanceRepo, bankRepo, limits)

	// Initialize handlers
	bankHandler := handler.NewBankHandler(bankUC)
	balanceHandler := handler.NewBalanceHandler(bankUC)
	convertHandler := handler.NewConvertHandler(converter)
	adminHandler := handler.NewAdminHandler(bankUC, oracleUC, reconciliationUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient, oracleUC)

	jwtManager, err := authManager(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth configuration")
	}
	if jwtManager == nil {
		log.Warn().Msg("authentication disabled; callers are identified by the X-Account-ID header")
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		BankHandler:      bankHandler,
		BalanceHandler:   balanceHandler,
		ConvertHandler:   convertHandler,
		AdminHandler:     adminHandler,
		HealthHandler:    healthHandler,
		Logger:           appLogger,
		JWTManager:       jwtManager,
		RateLimiter:      rateLimiter,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
	})

	// Background workers stop ahead of the HTTP listener on shutdown.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var sink eventpublisher.Publisher = eventpublisher.NewRedisPublisher(redisClient, eventpublisher.DefaultEventChannel)
	if cfg.PublishSink == "log" {
		sink = eventpublisher.NewLogPublisher(slog.Default())
	}

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  sink,
		Logger:     slog.Default(),
		Metrics:    m,
		BatchSize:  cfg.PublishBatch,
		Interval:   cfg.PublishInterval,
	})
	go func() {
		if err := publisher.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				rateLimiter.CleanupLimiters(time.Hour)
			}
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         listenAddr(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopWorkers()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// listenAddr accepts either a bare port or a full listen address.
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// authManager builds the token verifier, or returns nil when authentication
// is disabled. Enabling auth without a secret is a configuration error.
func authManager(cfg *config.Config) (*auth.JWTManager, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("AUTH_ENABLED requires JWT_SECRET to be set")
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), nil
}
