package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/tokenbank/internal/adapter/http/handler"
	"github.com/iho/tokenbank/internal/adapter/http/middleware"
	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/auth"
	"github.com/iho/tokenbank/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	BankHandler    *handler.BankHandler
	BalanceHandler *handler.BalanceHandler
	ConvertHandler *handler.ConvertHandler
	AdminHandler   *handler.AdminHandler
	HealthHandler  *handler.HealthHandler

	Logger zerolog.Logger

	// JWTManager enables token authentication. When nil, callers are
	// identified by the X-Account-ID header and granted the admin role;
	// only for local runs.
	JWTManager *auth.JWTManager

	RateLimiter      *middleware.RateLimiter
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Wrap)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Operational endpoints stay outside authentication
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authenticate := middleware.DevAuthenticate()
	if cfg.JWTManager != nil {
		authenticate = middleware.Authenticate(cfg.JWTManager)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)

		if cfg.IdempotencyStore != nil {
			ttl := cfg.IdempotencyTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, ttl).Wrap)
		}

		// Settlement transitions
		r.Route("/deposits", func(r chi.Router) {
			r.Post("/native", cfg.BankHandler.DepositNative)
			r.Post("/token", cfg.BankHandler.DepositToken)
		})
		r.Post("/receipts/native", cfg.BankHandler.ReceiptNative)
		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/native", cfg.BankHandler.WithdrawNative)
			r.Post("/token", cfg.BankHandler.WithdrawToken)
		})

		// Reads
		r.Get("/balances/me", cfg.BalanceHandler.Me)
		r.Get("/capacity", cfg.BalanceHandler.Capacity)
		r.Get("/operations", cfg.BalanceHandler.ListOperations)
		r.Get("/operations/{id}", cfg.BalanceHandler.GetOperation)
		r.Route("/convert", func(r chi.Router) {
			r.Get("/token-to-native", cfg.ConvertHandler.TokenToNative)
			r.Get("/native-to-token", cfg.ConvertHandler.NativeToToken)
		})

		// Administration
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Get("/statistics/bank", cfg.AdminHandler.BankStatistics)
			r.Get("/statistics/transactions", cfg.AdminHandler.TransactionStatistics)
			r.Get("/consistency", cfg.AdminHandler.Consistency)
			r.Put("/oracle", cfg.AdminHandler.ReplaceOracle)
		})
	})

	return r
}
