package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRecord holds one account's position in both assets.
//
// AggregateBalance is the account's combined value expressed in native units.
// It is maintained incrementally: every token movement adds or removes the
// native-equivalent computed at that movement's price. It is never recomputed
// from the current price, so it reflects historical conversion rates.
type BalanceRecord struct {
	AccountID        string
	NativeBalance    decimal.Decimal
	TokenBalance     decimal.Decimal
	AggregateBalance decimal.Decimal
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewBalanceRecord returns an empty record for an account seen for the
// first time. Records are created lazily on first deposit.
func NewBalanceRecord(accountID string, now time.Time) *BalanceRecord {
	return &BalanceRecord{
		AccountID:        accountID,
		NativeBalance:    decimal.Zero,
		TokenBalance:     decimal.Zero,
		AggregateBalance: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ValidateNativeDebit checks the native balance covers amount.
func (b *BalanceRecord) ValidateNativeDebit(amount decimal.Decimal) error {
	if b.NativeBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateTokenDebit checks the token balance covers amount.
func (b *BalanceRecord) ValidateTokenDebit(amount decimal.Decimal) error {
	if b.TokenBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyNativeCredit credits amount native units. The aggregate moves by the
// same amount since native units need no conversion.
func (b *BalanceRecord) ApplyNativeCredit(amount decimal.Decimal) {
	b.NativeBalance = b.NativeBalance.Add(amount)
	b.AggregateBalance = b.AggregateBalance.Add(amount)
}

// ApplyTokenCredit credits amount token units and nativeValue to the
// aggregate. nativeValue is the conversion result captured by the caller.
func (b *BalanceRecord) ApplyTokenCredit(amount, nativeValue decimal.Decimal) {
	b.TokenBalance = b.TokenBalance.Add(amount)
	b.AggregateBalance = b.AggregateBalance.Add(nativeValue)
}

// ApplyNativeDebit debits amount native units. The subtraction is checked:
// a negative result means a guard was bypassed and the record must not be
// persisted.
func (b *BalanceRecord) ApplyNativeDebit(amount decimal.Decimal) error {
	native := b.NativeBalance.Sub(amount)
	aggregate := b.AggregateBalance.Sub(amount)
	if native.IsNegative() || aggregate.IsNegative() {
		return ErrLedgerInconsistent
	}

	b.NativeBalance = native
	b.AggregateBalance = aggregate
	return nil
}

// ApplyTokenDebit debits amount token units and nativeValue from the
// aggregate, checked like ApplyNativeDebit.
func (b *BalanceRecord) ApplyTokenDebit(amount, nativeValue decimal.Decimal) error {
	token := b.TokenBalance.Sub(amount)
	aggregate := b.AggregateBalance.Sub(nativeValue)
	if token.IsNegative() || aggregate.IsNegative() {
		return ErrLedgerInconsistent
	}

	b.TokenBalance = token
	b.AggregateBalance = aggregate
	return nil
}
