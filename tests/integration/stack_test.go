package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/adapter/gateway"
	adaptershttp "github.com/iho/tokenbank/internal/adapter/http"
	"github.com/iho/tokenbank/internal/adapter/http/dto"
	"github.com/iho/tokenbank/internal/adapter/http/handler"
	"github.com/iho/tokenbank/internal/adapter/oracle"
	postgresrepo "github.com/iho/tokenbank/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/tokenbank/internal/adapter/repository/redis"
	"github.com/iho/tokenbank/internal/infrastructure/auth"
	infraredis "github.com/iho/tokenbank/internal/infrastructure/redis"
	"github.com/iho/tokenbank/internal/usecase"
	"github.com/iho/tokenbank/tests/testutil"
)

// custodyCall is one transfer request seen by a fake custody service.
type custodyCall struct {
	Path      string
	AccountID string
	Amount    string
}

// fakeGateway stands in for an external custody service. It records every
// transfer call and can be told to reject.
type fakeGateway struct {
	mu     sync.Mutex
	calls  []custodyCall
	reject string
	srv    *httptest.Server
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccountID string `json:"account_id"`
			Amount    string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		g.mu.Lock()
		g.calls = append(g.calls, custodyCall{Path: r.URL.Path, AccountID: req.AccountID, Amount: req.Amount})
		reject := g.reject
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if reject != "" {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "reason": reject})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) rejectWith(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reject = reason
}

func (g *fakeGateway) accept() {
	g.rejectWith("")
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) lastCall() (custodyCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return custodyCall{}, false
	}
	return g.calls[len(g.calls)-1], true
}

// stackConfig tunes the wiring for one test stack.
type stackConfig struct {
	price      int64 // native units per token unit, served by a static feed
	capacity   int64
	withdrawal int64
	jwtSecret  string // empty wires the header-trusting open mode
}

func defaultStackConfig() stackConfig {
	return stackConfig{price: 5, capacity: 1_000_000, withdrawal: 10_000}
}

// stack wires the full service surface against real Postgres and Redis,
// with fake custody services and a static price feed.
type stack struct {
	db       *testutil.TestDB
	router   http.Handler
	redis    *goredis.Client
	tokenGW  *fakeGateway
	nativeGW *fakeGateway
	balances *postgresrepo.BalanceRepository
	bank     *postgresrepo.BankStateRepository
	journal  *postgresrepo.OperationRepository
	outbox   *postgresrepo.OutboxRepository
	jwt      *auth.JWTManager
}

func newStack(t *testing.T, cfg stackConfig) *stack {
	t.Helper()

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	t.Cleanup(testDB.Cleanup)
	testDB.Reset(ctx)

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	redisClient, err := infraredis.NewClient(ctx, redisURL)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	pool := testDB.Pool
	txManager := postgresrepo.NewTxManager(pool)
	balanceRepo := postgresrepo.NewBalanceRepository(pool)
	bankRepo := postgresrepo.NewBankStateRepository(pool)
	operationRepo := postgresrepo.NewOperationRepository(pool)
	outboxRepo := postgresrepo.NewOutboxRepository(pool)
	idGen := postgresrepo.NewULIDGenerator()

	feed := oracle.NewStaticFeed(decimal.NewFromInt(cfg.price), time.Time{})
	priceOracle := oracle.NewAdapter(feed, time.Hour, zerolog.Nop(), nil)

	tokenGW := newFakeGateway(t)
	nativeGW := newFakeGateway(t)
	tokenClient := gateway.NewTokenClient(nil, tokenGW.srv.URL, zerolog.Nop(), nil)
	nativeClient := gateway.NewNativeClient(nil, nativeGW.srv.URL, zerolog.Nop(), nil)

	limits := usecase.Limits{
		Withdrawal: decimal.NewFromInt(cfg.withdrawal),
		Capacity:   decimal.NewFromInt(cfg.capacity),
	}
	converter := usecase.NewConverter(priceOracle)
	bankUC := usecase.NewBankUseCase(
		txManager, balanceRepo, bankRepo, operationRepo, outboxRepo,
		converter, tokenClient, nativeClient, idGen, nil, limits,
	)
	oracleUC := usecase.NewOracleUseCase(priceOracle, txManager, outboxRepo, idGen, nil)
	reconciliationUC := usecase.NewReconciliationUseCase(balanceRepo, bankRepo, limits)

	var jwtManager *auth.JWTManager
	if cfg.jwtSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.jwtSecret, time.Hour)
	}

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		BankHandler:      handler.NewBankHandler(bankUC),
		BalanceHandler:   handler.NewBalanceHandler(bankUC),
		ConvertHandler:   handler.NewConvertHandler(converter),
		AdminHandler:     handler.NewAdminHandler(bankUC, oracleUC, reconciliationUC),
		HealthHandler:    handler.NewHealthHandler(pool, redisClient, oracleUC),
		JWTManager:       jwtManager,
		IdempotencyStore: redisrepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   time.Minute,
	})

	return &stack{
		db:       testDB,
		router:   router,
		redis:    redisClient,
		tokenGW:  tokenGW,
		nativeGW: nativeGW,
		balances: balanceRepo,
		bank:     bankRepo,
		journal:  operationRepo,
		outbox:   outboxRepo,
		jwt:      jwtManager,
	}
}

// do performs one request against the stack. A non-empty account sets the
// X-Account-ID header the open mode trusts.
func (s *stack) do(t *testing.T, method, path, account string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, body)
	if payload != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if account != "" {
		r.Header.Set("X-Account-ID", account)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func amountBody(amount string) map[string]string {
	return map[string]string{"amount": amount}
}

func decodeOperation(t *testing.T, w *httptest.ResponseRecorder) dto.OperationResponse {
	t.Helper()

	var resp dto.OperationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse operation response: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
