package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/metrics"
)

// Limits are the bank's immutable accounting bounds, fixed at boot.
type Limits struct {
	// Withdrawal caps the native-equivalent value of one withdrawal.
	Withdrawal decimal.Decimal
	// Capacity caps TotalDeposited across all accounts.
	Capacity decimal.Decimal
}

// BankUseCase executes the bank's settlement transitions. Each transition is
// all-or-nothing: guards run in a fixed order, mutations happen inside one
// database transaction serialized on the bank state row, and an external
// transfer failure rolls every mutation back.
type BankUseCase struct {
	txManager     TransactionManager
	balanceRepo   BalanceRepository
	bankRepo      BankStateRepository
	operationRepo OperationRepository
	outboxRepo    OutboxRepository
	converter     *Converter
	tokenGateway  TokenGateway
	nativeGateway NativeGateway
	idGen         IDGenerator
	metrics       *metrics.Metrics
	limits        Limits
}

// NewBankUseCase creates a new BankUseCase.
func NewBankUseCase(
	txManager TransactionManager,
	balanceRepo BalanceRepository,
	bankRepo BankStateRepository,
	operationRepo OperationRepository,
	outboxRepo OutboxRepository,
	converter *Converter,
	tokenGateway TokenGateway,
	nativeGateway NativeGateway,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	limits Limits,
) *BankUseCase {
	return &BankUseCase{
		txManager:     txManager,
		balanceRepo:   balanceRepo,
		bankRepo:      bankRepo,
		operationRepo: operationRepo,
		outboxRepo:    outboxRepo,
		converter:     converter,
		tokenGateway:  tokenGateway,
		nativeGateway: nativeGateway,
		idGen:         idGen,
		metrics:       metrics,
		limits:        limits,
	}
}

// Limits returns the configured accounting bounds.
func (uc *BankUseCase) Limits() Limits {
	return uc.limits
}

// DepositNative credits amount native units to accountID. The native units
// are already in custody when this is called, so no gateway transfer runs;
// bare incoming settlement receipts use this same path.
func (uc *BankUseCase) DepositNative(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error) {
	start := time.Now()

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// bank state first, account row second; one lock order everywhere
	state, err := uc.bankRepo.GetForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}

	if err := state.ValidateDeposit(amount, uc.limits.Capacity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	record, err := uc.balanceRepo.GetOrCreateForUpdate(txCtx, tx, accountID, now)
	if err != nil {
		return nil, err
	}

	previousAggregate := record.AggregateBalance
	record.ApplyNativeCredit(amount)
	state.ApplyNativeDeposit(amount)

	op, err := uc.writeTransition(txCtx, tx, record, state, &domain.Operation{
		ID:                uc.idGen.Generate(),
		AccountID:         accountID,
		Kind:              domain.OperationDepositNative,
		Amount:            amount,
		NativeValue:       amount,
		PreviousAggregate: previousAggregate,
		CurrentAggregate:  record.AggregateBalance,
		AccountVersion:    record.Version + 1,
		CreatedAt:         now,
	}, domain.EventTypeNativeDepositRecorded, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeOperation(op, state, start)

	return op, nil
}

// DepositToken pulls amount token units from external custody and credits
// them. The conversion runs first and any conversion or oracle failure
// aborts before the custody service is contacted; the balance mutation is
// written only after the custody service confirms the pull.
func (uc *BankUseCase) DepositToken(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error) {
	start := time.Now()

	value, price, err := uc.converter.nativeEquivalent(ctx, amount)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	state, err := uc.bankRepo.GetForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}

	if err := state.ValidateDeposit(value, uc.limits.Capacity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	record, err := uc.balanceRepo.GetOrCreateForUpdate(txCtx, tx, accountID, now)
	if err != nil {
		return nil, err
	}

	// the pull must clear before any credit is written
	if err := uc.tokenGateway.TransferIn(txCtx, accountID, amount); err != nil {
		return nil, fmt.Errorf("%w: transfer-in rejected: %v", domain.ErrInvalidAmount, err)
	}

	previousAggregate := record.AggregateBalance
	record.ApplyTokenCredit(amount, value)
	state.ApplyTokenDeposit(value)

	op, err := uc.writeTransition(txCtx, tx, record, state, &domain.Operation{
		ID:                uc.idGen.Generate(),
		AccountID:         accountID,
		Kind:              domain.OperationDepositToken,
		Amount:            amount,
		NativeValue:       value,
		Price:             price,
		PreviousAggregate: previousAggregate,
		CurrentAggregate:  record.AggregateBalance,
		AccountVersion:    record.Version + 1,
		CreatedAt:         now,
	}, domain.EventTypeTokenDepositRecorded, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeOperation(op, state, start)

	return op, nil
}

// WithdrawNative debits amount native units and pays them out. Guards run
// strictly in order: amount validity, per-transaction limit, account
// balance, then the custody view of the same balance as an invariant. The
// payout happens inside the transaction window; its failure rolls back the
// already-written debit.
func (uc *BankUseCase) WithdrawNative(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error) {
	start := time.Now()

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if amount.GreaterThan(uc.limits.Withdrawal) {
		return nil, domain.ErrWithdrawalLimitExceeded
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	state, err := uc.bankRepo.GetForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}

	record, err := uc.lockRecordForWithdrawal(txCtx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if err := record.ValidateNativeDebit(amount); err != nil {
		return nil, err
	}

	// the account view passed, so the custody view must cover it too
	if err := state.ValidateNativeHeld(amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	previousAggregate := record.AggregateBalance
	if err := record.ApplyNativeDebit(amount); err != nil {
		return nil, err
	}
	if err := state.ApplyNativeWithdrawal(amount); err != nil {
		return nil, err
	}

	op, err := uc.writeTransition(txCtx, tx, record, state, &domain.Operation{
		ID:                uc.idGen.Generate(),
		AccountID:         accountID,
		Kind:              domain.OperationWithdrawalNative,
		Amount:            amount,
		NativeValue:       amount,
		PreviousAggregate: previousAggregate,
		CurrentAggregate:  record.AggregateBalance,
		AccountVersion:    record.Version + 1,
		CreatedAt:         now,
	}, domain.EventTypeNativeWithdrawalRecorded, now)
	if err != nil {
		return nil, err
	}

	if err := uc.nativeGateway.Send(txCtx, accountID, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeOperation(op, state, start)

	return op, nil
}

// WithdrawToken debits amount token units and pushes them back to external
// custody. The native-equivalent drives the limit guard and the aggregate
// accounting; the push-out failure rolls the debit back.
func (uc *BankUseCase) WithdrawToken(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error) {
	start := time.Now()

	value, price, err := uc.converter.nativeEquivalent(ctx, amount)
	if err != nil {
		return nil, err
	}

	if value.GreaterThan(uc.limits.Withdrawal) {
		return nil, domain.ErrWithdrawalLimitExceeded
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	state, err := uc.bankRepo.GetForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}

	record, err := uc.lockRecordForWithdrawal(txCtx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if err := record.ValidateTokenDebit(amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	previousAggregate := record.AggregateBalance
	if err := record.ApplyTokenDebit(amount, value); err != nil {
		return nil, err
	}
	if err := state.ApplyTokenWithdrawal(value); err != nil {
		return nil, err
	}

	op, err := uc.writeTransition(txCtx, tx, record, state, &domain.Operation{
		ID:                uc.idGen.Generate(),
		AccountID:         accountID,
		Kind:              domain.OperationWithdrawalToken,
		Amount:            amount,
		NativeValue:       value,
		Price:             price,
		PreviousAggregate: previousAggregate,
		CurrentAggregate:  record.AggregateBalance,
		AccountVersion:    record.Version + 1,
		CreatedAt:         now,
	}, domain.EventTypeTokenWithdrawalRecorded, now)
	if err != nil {
		return nil, err
	}

	if err := uc.tokenGateway.TransferOut(txCtx, accountID, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeOperation(op, state, start)

	return op, nil
}

// lockRecordForWithdrawal locks the account record without creating it; an
// account that never deposited holds the zero record, which cannot cover
// any withdrawal.
func (uc *BankUseCase) lockRecordForWithdrawal(ctx context.Context, tx Transaction, accountID string) (*domain.BalanceRecord, error) {
	record, err := uc.balanceRepo.GetByAccountIDForUpdate(ctx, tx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInsufficientFunds
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// writeTransition persists the mutated record and state, journals the
// operation, and stages its event in the same transaction.
func (uc *BankUseCase) writeTransition(
	ctx context.Context,
	tx Transaction,
	record *domain.BalanceRecord,
	state *domain.BankState,
	op *domain.Operation,
	eventType string,
	now time.Time,
) (*domain.Operation, error) {
	if err := uc.balanceRepo.UpdateBalances(ctx, tx, record, now); err != nil {
		return nil, err
	}

	if err := uc.bankRepo.Update(ctx, tx, state, now); err != nil {
		return nil, err
	}

	if err := uc.operationRepo.Create(ctx, tx, op); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"account_id":   op.AccountID,
		"asset":        string(op.Kind.Asset()),
		"amount":       op.Amount.String(),
		"native_value": op.NativeValue.String(),
		"event_at":     now.Format(time.RFC3339Nano),
	}
	if !op.Price.IsZero() {
		payload["price"] = op.Price.String()
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   op.AccountID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
		Published:     false,
	}
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	record.Version++

	return op, nil
}

func (uc *BankUseCase) observeOperation(op *domain.Operation, state *domain.BankState, start time.Time) {
	if uc.metrics == nil {
		return
	}

	asset := string(op.Kind.Asset())
	if op.Kind.IsWithdrawal() {
		uc.metrics.WithdrawalsRecorded.WithLabelValues(asset).Inc()
	} else {
		uc.metrics.DepositsRecorded.WithLabelValues(asset).Inc()
	}
	uc.metrics.OperationAmount.WithLabelValues(asset).Observe(op.Amount.InexactFloat64())
	uc.metrics.OperationDuration.Observe(time.Since(start).Seconds())
	uc.metrics.TotalDeposited.Set(state.TotalDeposited.InexactFloat64())
	uc.metrics.RemainingCapacity.Set(state.RemainingCapacity(uc.limits.Capacity).InexactFloat64())
}

// Balances returns the caller's balance triple. Unknown accounts read as
// the zero record, matching the lazy record creation on first deposit.
func (uc *BankUseCase) Balances(ctx context.Context, accountID string) (*domain.BalanceRecord, error) {
	record, err := uc.balanceRepo.GetByAccountID(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.NewBalanceRecord(accountID, time.Now().UTC()), nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// AvailableCapacity returns how much native-equivalent value the bank can
// still accept.
func (uc *BankUseCase) AvailableCapacity(ctx context.Context) (decimal.Decimal, error) {
	state, err := uc.bankRepo.Get(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return state.RemainingCapacity(uc.limits.Capacity), nil
}

// BankStatistics is the admin view of the bank's accounting position.
type BankStatistics struct {
	CapacityLimit     decimal.Decimal
	WithdrawalLimit   decimal.Decimal
	TotalDeposited    decimal.Decimal
	TotalNativeHeld   decimal.Decimal
	RemainingCapacity decimal.Decimal
}

// BankStatistics reports the global accounting figures.
func (uc *BankUseCase) BankStatistics(ctx context.Context) (*BankStatistics, error) {
	state, err := uc.bankRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &BankStatistics{
		CapacityLimit:     uc.limits.Capacity,
		WithdrawalLimit:   uc.limits.Withdrawal,
		TotalDeposited:    state.TotalDeposited,
		TotalNativeHeld:   state.TotalNativeHeld,
		RemainingCapacity: state.RemainingCapacity(uc.limits.Capacity),
	}, nil
}

// TransactionStatistics is the admin view of the transition counters.
type TransactionStatistics struct {
	DepositCount    int64
	WithdrawalCount int64
}

// TransactionStatistics reports the monotonic transition counters.
func (uc *BankUseCase) TransactionStatistics(ctx context.Context) (*TransactionStatistics, error) {
	state, err := uc.bankRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &TransactionStatistics{
		DepositCount:    state.DepositCount,
		WithdrawalCount: state.WithdrawalCount,
	}, nil
}

// GetOperation retrieves one journal entry by ID.
func (uc *BankUseCase) GetOperation(ctx context.Context, id string) (*domain.Operation, error) {
	return uc.operationRepo.GetByID(ctx, id)
}

// ListOperationsInput represents input for listing journal entries.
type ListOperationsInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListOperationsByAccount lists journal entries for an account.
func (uc *BankUseCase) ListOperationsByAccount(ctx context.Context, input ListOperationsInput) ([]*domain.Operation, error) {
	if input.Limit <= 0 {
		input.Limit = DefaultPageSize
	}

	if input.Limit > MaxPageSize {
		input.Limit = MaxPageSize
	}

	return uc.operationRepo.ListByAccount(ctx, input.AccountID, input.Limit, input.Offset)
}
