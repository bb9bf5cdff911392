package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
	"github.com/shopspring/decimal"
)

// MockBalanceRepository is a mock implementation of BalanceRepository.
type MockBalanceRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.BalanceRecord

	GetByAccountIDFunc          func(ctx context.Context, accountID string) (*domain.BalanceRecord, error)
	GetOrCreateForUpdateFunc    func(ctx context.Context, tx usecase.Transaction, accountID string, now time.Time) (*domain.BalanceRecord, error)
	GetByAccountIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, accountID string) (*domain.BalanceRecord, error)
	UpdateBalancesFunc          func(ctx context.Context, tx usecase.Transaction, record *domain.BalanceRecord, updatedAt time.Time) error
	ListFunc                    func(ctx context.Context, limit, offset int) ([]*domain.BalanceRecord, error)
	SumAggregateFunc            func(ctx context.Context) (decimal.Decimal, error)
}

func NewMockBalanceRepository() *MockBalanceRepository {
	return &MockBalanceRepository{
		records: make(map[string]*domain.BalanceRecord),
	}
}

// Seed installs a record directly, bypassing the lazy-create path.
func (m *MockBalanceRepository) Seed(record *domain.BalanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.AccountID] = record
}

func (m *MockBalanceRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.BalanceRecord, error) {
	if m.GetByAccountIDFunc != nil {
		return m.GetByAccountIDFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.records[accountID]; ok {
		return rec, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockBalanceRepository) GetOrCreateForUpdate(ctx context.Context, tx usecase.Transaction, accountID string, now time.Time) (*domain.BalanceRecord, error) {
	if m.GetOrCreateForUpdateFunc != nil {
		return m.GetOrCreateForUpdateFunc(ctx, tx, accountID, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[accountID]; ok {
		return rec, nil
	}
	rec := domain.NewBalanceRecord(accountID, now)
	m.records[accountID] = rec
	return rec, nil
}

func (m *MockBalanceRepository) GetByAccountIDForUpdate(ctx context.Context, tx usecase.Transaction, accountID string) (*domain.BalanceRecord, error) {
	if m.GetByAccountIDForUpdateFunc != nil {
		return m.GetByAccountIDForUpdateFunc(ctx, tx, accountID)
	}
	return m.GetByAccountID(ctx, accountID)
}

func (m *MockBalanceRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, record *domain.BalanceRecord, updatedAt time.Time) error {
	if m.UpdateBalancesFunc != nil {
		return m.UpdateBalancesFunc(ctx, tx, record, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record.UpdatedAt = updatedAt
	m.records[record.AccountID] = record
	return nil
}

func (m *MockBalanceRepository) List(ctx context.Context, limit, offset int) ([]*domain.BalanceRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []*domain.BalanceRecord
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, nil
}

func (m *MockBalanceRepository) SumAggregate(ctx context.Context) (decimal.Decimal, error) {
	if m.SumAggregateFunc != nil {
		return m.SumAggregateFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, rec := range m.records {
		sum = sum.Add(rec.AggregateBalance)
	}
	return sum, nil
}

// MockBankStateRepository is a mock implementation of BankStateRepository.
type MockBankStateRepository struct {
	mu    sync.RWMutex
	State *domain.BankState

	GetFunc          func(ctx context.Context) (*domain.BankState, error)
	GetForUpdateFunc func(ctx context.Context, tx usecase.Transaction) (*domain.BankState, error)
	UpdateFunc       func(ctx context.Context, tx usecase.Transaction, state *domain.BankState, updatedAt time.Time) error
}

func NewMockBankStateRepository() *MockBankStateRepository {
	return &MockBankStateRepository{
		State: &domain.BankState{
			TotalDeposited:  decimal.Zero,
			TotalNativeHeld: decimal.Zero,
		},
	}
}

func (m *MockBankStateRepository) Get(ctx context.Context) (*domain.BankState, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.State, nil
}

func (m *MockBankStateRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.BankState, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx)
	}
	return m.Get(ctx)
}

func (m *MockBankStateRepository) Update(ctx context.Context, tx usecase.Transaction, state *domain.BankState, updatedAt time.Time) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, state, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state.UpdatedAt = updatedAt
	m.State = state
	return nil
}

// MockOperationRepository is a mock implementation of OperationRepository.
type MockOperationRepository struct {
	mu         sync.RWMutex
	operations map[string]*domain.Operation

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.Operation, error)
	ListByAccountFunc func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error)
}

func NewMockOperationRepository() *MockOperationRepository {
	return &MockOperationRepository{
		operations: make(map[string]*domain.Operation),
	}
}

func (m *MockOperationRepository) Create(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, op)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[op.ID] = op
	return nil
}

func (m *MockOperationRepository) GetByID(ctx context.Context, id string) (*domain.Operation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if op, ok := m.operations[id]; ok {
		return op, nil
	}
	return nil, domain.ErrOperationNotFound
}

func (m *MockOperationRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ops []*domain.Operation
	for _, op := range m.operations {
		if op.AccountID == accountID {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func (m *MockOperationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.operations)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published {
			events = append(events, e)
		}
		if len(events) >= limit {
			break
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.Events = kept
	return nil
}

// GatewayCall records one invocation of a gateway mock.
type GatewayCall struct {
	AccountID string
	Amount    decimal.Decimal
}

// MockTokenGateway is a mock implementation of TokenGateway.
type MockTokenGateway struct {
	mu       sync.Mutex
	InCalls  []GatewayCall
	OutCalls []GatewayCall

	TransferInFunc  func(ctx context.Context, accountID string, amount decimal.Decimal) error
	TransferOutFunc func(ctx context.Context, accountID string, amount decimal.Decimal) error
}

func NewMockTokenGateway() *MockTokenGateway {
	return &MockTokenGateway{}
}

func (m *MockTokenGateway) TransferIn(ctx context.Context, accountID string, amount decimal.Decimal) error {
	m.mu.Lock()
	m.InCalls = append(m.InCalls, GatewayCall{AccountID: accountID, Amount: amount})
	m.mu.Unlock()
	if m.TransferInFunc != nil {
		return m.TransferInFunc(ctx, accountID, amount)
	}
	return nil
}

func (m *MockTokenGateway) TransferOut(ctx context.Context, accountID string, amount decimal.Decimal) error {
	m.mu.Lock()
	m.OutCalls = append(m.OutCalls, GatewayCall{AccountID: accountID, Amount: amount})
	m.mu.Unlock()
	if m.TransferOutFunc != nil {
		return m.TransferOutFunc(ctx, accountID, amount)
	}
	return nil
}

// MockNativeGateway is a mock implementation of NativeGateway.
type MockNativeGateway struct {
	mu    sync.Mutex
	Sends []GatewayCall

	SendFunc func(ctx context.Context, accountID string, amount decimal.Decimal) error
}

func NewMockNativeGateway() *MockNativeGateway {
	return &MockNativeGateway{}
}

func (m *MockNativeGateway) Send(ctx context.Context, accountID string, amount decimal.Decimal) error {
	m.mu.Lock()
	m.Sends = append(m.Sends, GatewayCall{AccountID: accountID, Amount: amount})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, accountID, amount)
	}
	return nil
}

// MockPriceSource is a mock implementation of PriceSource. The default
// returns Value and counts calls.
type MockPriceSource struct {
	mu    sync.Mutex
	Value decimal.Decimal
	Calls int

	PriceFunc func(ctx context.Context) (decimal.Decimal, error)
}

func NewMockPriceSource(value decimal.Decimal) *MockPriceSource {
	return &MockPriceSource{Value: value}
}

func (m *MockPriceSource) Price(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.PriceFunc != nil {
		return m.PriceFunc(ctx)
	}
	return m.Value, nil
}

// MockOracleControl is a mock implementation of OracleControl.
type MockOracleControl struct {
	MockPriceSource

	ReplaceFunc  func(ctx context.Context, spec domain.FeedSpec) (string, error)
	DescribeFunc func() string
}

func NewMockOracleControl(value decimal.Decimal) *MockOracleControl {
	return &MockOracleControl{MockPriceSource: MockPriceSource{Value: value}}
}

func (m *MockOracleControl) Replace(ctx context.Context, spec domain.FeedSpec) (string, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, spec)
	}
	return spec.Kind, nil
}

func (m *MockOracleControl) Describe() string {
	if m.DescribeFunc != nil {
		return m.DescribeFunc()
	}
	return "mock"
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + string(rune('0'+m.counter))
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	DeleteFunc      func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
