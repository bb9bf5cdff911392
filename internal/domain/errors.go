package domain

import "errors"

var (
	// Amount validation errors
	ErrInvalidAmount = errors.New("invalid amount")
	ErrZeroAmount    = errors.New("amount must not be zero")

	// Transition guard errors
	ErrWithdrawalLimitExceeded = errors.New("withdrawal exceeds per-transaction limit")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrBankCapacityExceeded    = errors.New("bank capacity exceeded")

	// Oracle errors
	ErrOracleCompromised = errors.New("oracle reported a zero or negative price")
	ErrStalePrice        = errors.New("oracle price is stale")

	// Settlement errors
	ErrTransferFailed = errors.New("external transfer failed")

	// ErrLedgerInconsistent reports a broken internal invariant, never a
	// rejected request. Any occurrence is a bug or corrupted state.
	ErrLedgerInconsistent = errors.New("ledger state inconsistent")

	ErrAccountNotFound   = errors.New("account not found")
	ErrOperationNotFound = errors.New("operation not found")
)
