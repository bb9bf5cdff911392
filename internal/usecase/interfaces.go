package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// BalanceRepository defines data access for per-account balance records.
type BalanceRepository interface {
	GetByAccountID(ctx context.Context, accountID string) (*domain.BalanceRecord, error)
	// GetOrCreateForUpdate locks the account's record, inserting the empty
	// record first when the account has never deposited.
	GetOrCreateForUpdate(ctx context.Context, tx Transaction, accountID string, now time.Time) (*domain.BalanceRecord, error)
	GetByAccountIDForUpdate(ctx context.Context, tx Transaction, accountID string) (*domain.BalanceRecord, error)
	UpdateBalances(ctx context.Context, tx Transaction, record *domain.BalanceRecord, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.BalanceRecord, error)
	SumAggregate(ctx context.Context) (decimal.Decimal, error)
}

// BankStateRepository defines data access for the singleton bank state row.
type BankStateRepository interface {
	Get(ctx context.Context) (*domain.BankState, error)
	// GetForUpdate locks the bank state row. Every mutating transition takes
	// this lock first, which serializes transitions bank-wide.
	GetForUpdate(ctx context.Context, tx Transaction) (*domain.BankState, error)
	Update(ctx context.Context, tx Transaction, state *domain.BankState, updatedAt time.Time) error
}

// OperationRepository defines data access for the settlement journal.
type OperationRepository interface {
	Create(ctx context.Context, tx Transaction, op *domain.Operation) error
	GetByID(ctx context.Context, id string) (*domain.Operation, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// TokenGateway moves token units between external custody and the bank.
// A nil error means the custody service confirmed the transfer.
type TokenGateway interface {
	TransferIn(ctx context.Context, accountID string, amount decimal.Decimal) error
	TransferOut(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// NativeGateway pays out native units through the settlement service.
type NativeGateway interface {
	Send(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// PriceSource yields the current validated oracle price. Implementations
// must reject stale and non-positive readings and must not cache.
type PriceSource interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// OracleControl is the swappable oracle reference. Replace builds a feed
// from spec, probes it for a sane reading, and atomically swaps it in,
// returning the feed's label.
type OracleControl interface {
	PriceSource
	Replace(ctx context.Context, spec domain.FeedSpec) (string, error)
	Describe() string
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a claimed key.
	Delete(ctx context.Context, key string) error
}
