package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
)

// ErrorResponse is the envelope for all non-2xx replies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse reports the three tracked figures for one account.
// Aggregate is the incrementally maintained native-equivalent total, not a
// recomputation at the current price.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Native    decimal.Decimal `json:"native"`
	Token     decimal.Decimal `json:"token"`
	Aggregate decimal.Decimal `json:"aggregate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceFromDomain converts a balance record to its API shape.
func BalanceFromDomain(r *domain.BalanceRecord) BalanceResponse {
	return BalanceResponse{
		AccountID: r.AccountID,
		Native:    r.NativeBalance,
		Token:     r.TokenBalance,
		Aggregate: r.AggregateBalance,
		UpdatedAt: r.UpdatedAt,
	}
}

// CapacityResponse reports how much more the bank can absorb.
type CapacityResponse struct {
	Available decimal.Decimal `json:"available"`
}

// ConversionResponse echoes the input amount alongside its conversion at
// the current oracle price.
type ConversionResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	Converted decimal.Decimal `json:"converted"`
}

// OperationResponse is one settlement journal entry.
type OperationResponse struct {
	ID                string          `json:"id"`
	AccountID         string          `json:"account_id"`
	Kind              string          `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	NativeValue       decimal.Decimal `json:"native_value"`
	Price             decimal.Decimal `json:"price"`
	PreviousAggregate decimal.Decimal `json:"previous_aggregate"`
	CurrentAggregate  decimal.Decimal `json:"current_aggregate"`
	AccountVersion    int64           `json:"account_version"`
	CreatedAt         time.Time       `json:"created_at"`
}

// OperationFromDomain converts a journal entry to its API shape.
func OperationFromDomain(op *domain.Operation) OperationResponse {
	return OperationResponse{
		ID:                op.ID,
		AccountID:         op.AccountID,
		Kind:              string(op.Kind),
		Amount:            op.Amount,
		NativeValue:       op.NativeValue,
		Price:             op.Price,
		PreviousAggregate: op.PreviousAggregate,
		CurrentAggregate:  op.CurrentAggregate,
		AccountVersion:    op.AccountVersion,
		CreatedAt:         op.CreatedAt,
	}
}

// OperationsFromDomain converts a journal page to its API shape.
func OperationsFromDomain(ops []*domain.Operation) []OperationResponse {
	out := make([]OperationResponse, 0, len(ops))
	for _, op := range ops {
		out = append(out, OperationFromDomain(op))
	}
	return out
}

// ListOperationsResponse is a page of journal entries.
type ListOperationsResponse struct {
	Operations []OperationResponse `json:"operations"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// BankStatisticsResponse reports the global accounting figures plus the
// label of the price feed currently in use.
type BankStatisticsResponse struct {
	CapacityLimit     decimal.Decimal `json:"capacity_limit"`
	WithdrawalLimit   decimal.Decimal `json:"withdrawal_limit"`
	TotalDeposited    decimal.Decimal `json:"total_deposited"`
	TotalNativeHeld   decimal.Decimal `json:"total_native_held"`
	RemainingCapacity decimal.Decimal `json:"remaining_capacity"`
	OracleFeed        string          `json:"oracle_feed"`
}

// BankStatisticsFromDomain converts the usecase figures, attaching the
// active feed label.
func BankStatisticsFromDomain(s *usecase.BankStatistics, feed string) BankStatisticsResponse {
	return BankStatisticsResponse{
		CapacityLimit:     s.CapacityLimit,
		WithdrawalLimit:   s.WithdrawalLimit,
		TotalDeposited:    s.TotalDeposited,
		TotalNativeHeld:   s.TotalNativeHeld,
		RemainingCapacity: s.RemainingCapacity,
		OracleFeed:        feed,
	}
}

// TransactionStatisticsResponse reports the monotonic transition counters.
type TransactionStatisticsResponse struct {
	DepositCount    int64 `json:"deposit_count"`
	WithdrawalCount int64 `json:"withdrawal_count"`
}

// ConsistencyResponse is the result of a reconciliation sweep.
type ConsistencyResponse struct {
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	AggregateSum   decimal.Decimal `json:"aggregate_sum"`
	Difference     decimal.Decimal `json:"difference"`
	CapacityLimit  decimal.Decimal `json:"capacity_limit"`
	WithinCapacity bool            `json:"within_capacity"`
	Consistent     bool            `json:"consistent"`
	CheckedAt      time.Time       `json:"checked_at"`
}

// ConsistencyFromDomain converts a reconciliation report to its API shape.
func ConsistencyFromDomain(r *usecase.ConsistencyReport) ConsistencyResponse {
	return ConsistencyResponse{
		TotalDeposited: r.TotalDeposited,
		AggregateSum:   r.AggregateSum,
		Difference:     r.Difference,
		CapacityLimit:  r.CapacityLimit,
		WithinCapacity: r.WithinCapacity,
		Consistent:     r.Consistent,
		CheckedAt:      r.CheckedAt,
	}
}

// OracleFeedResponse reports the feed label after a replacement.
type OracleFeedResponse struct {
	Feed string `json:"feed"`
}
