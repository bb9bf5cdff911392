package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind classifies a settlement journal entry.
type OperationKind string

const (
	OperationDepositNative    OperationKind = "deposit_native"
	OperationDepositToken     OperationKind = "deposit_token"
	OperationWithdrawalNative OperationKind = "withdrawal_native"
	OperationWithdrawalToken  OperationKind = "withdrawal_token"
)

var validOperationKinds = map[OperationKind]bool{
	OperationDepositNative:    true,
	OperationDepositToken:     true,
	OperationWithdrawalNative: true,
	OperationWithdrawalToken:  true,
}

// IsValid checks if the kind is known.
func (k OperationKind) IsValid() bool {
	return validOperationKinds[k]
}

// IsWithdrawal reports whether the kind debits the account.
func (k OperationKind) IsWithdrawal() bool {
	return k == OperationWithdrawalNative || k == OperationWithdrawalToken
}

// Asset returns the asset the operation moves.
func (k OperationKind) Asset() AssetKind {
	if k == OperationDepositNative || k == OperationWithdrawalNative {
		return AssetNative
	}
	return AssetToken
}

// Operation is one completed deposit or withdrawal, journaled in the same
// transaction that mutated the balances.
type Operation struct {
	CreatedAt         time.Time
	ID                string
	AccountID         string
	Kind              OperationKind
	Amount            decimal.Decimal
	NativeValue       decimal.Decimal
	Price             decimal.Decimal
	PreviousAggregate decimal.Decimal
	CurrentAggregate  decimal.Decimal
	AccountVersion    int64
}
