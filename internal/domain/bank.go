package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankState is the singleton aggregate tracked across all accounts.
//
// TotalDeposited accumulates every account's native-equivalent contribution
// and must never exceed the configured capacity limit. TotalNativeHeld counts
// native units physically in custody; token movements change TotalDeposited
// but not TotalNativeHeld, which is the one sanctioned way the two figures
// diverge.
type BankState struct {
	TotalDeposited  decimal.Decimal
	TotalNativeHeld decimal.Decimal
	DepositCount    int64
	WithdrawalCount int64
	UpdatedAt       time.Time
}

// RemainingCapacity returns how much native-equivalent value the bank can
// still accept under capacityLimit.
func (s *BankState) RemainingCapacity(capacityLimit decimal.Decimal) decimal.Decimal {
	remaining := capacityLimit.Sub(s.TotalDeposited)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ValidateDeposit checks that accepting nativeValue keeps TotalDeposited
// within capacityLimit.
func (s *BankState) ValidateDeposit(nativeValue, capacityLimit decimal.Decimal) error {
	if s.TotalDeposited.Add(nativeValue).GreaterThan(capacityLimit) {
		return ErrBankCapacityExceeded
	}
	return nil
}

// ValidateNativeHeld checks the custody view covers amount. The caller has
// already verified the account balance, so a failure here means the two
// views disagree.
func (s *BankState) ValidateNativeHeld(amount decimal.Decimal) error {
	if s.TotalNativeHeld.LessThan(amount) {
		return ErrLedgerInconsistent
	}
	return nil
}

// ApplyNativeDeposit records a native deposit of amount.
func (s *BankState) ApplyNativeDeposit(amount decimal.Decimal) {
	s.TotalDeposited = s.TotalDeposited.Add(amount)
	s.TotalNativeHeld = s.TotalNativeHeld.Add(amount)
	s.DepositCount++
}

// ApplyTokenDeposit records a token deposit worth nativeValue.
func (s *BankState) ApplyTokenDeposit(nativeValue decimal.Decimal) {
	s.TotalDeposited = s.TotalDeposited.Add(nativeValue)
	s.DepositCount++
}

// ApplyNativeWithdrawal records a native withdrawal of amount, checked.
func (s *BankState) ApplyNativeWithdrawal(amount decimal.Decimal) error {
	deposited := s.TotalDeposited.Sub(amount)
	held := s.TotalNativeHeld.Sub(amount)
	if deposited.IsNegative() || held.IsNegative() {
		return ErrLedgerInconsistent
	}

	s.TotalDeposited = deposited
	s.TotalNativeHeld = held
	s.WithdrawalCount++
	return nil
}

// ApplyTokenWithdrawal records a token withdrawal worth nativeValue, checked.
func (s *BankState) ApplyTokenWithdrawal(nativeValue decimal.Decimal) error {
	deposited := s.TotalDeposited.Sub(nativeValue)
	if deposited.IsNegative() {
		return ErrLedgerInconsistent
	}

	s.TotalDeposited = deposited
	s.WithdrawalCount++
	return nil
}
