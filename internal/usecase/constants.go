package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds how long one settlement transaction
	// may hold the bank state lock
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultPageSize and MaxPageSize bound listing queries
	DefaultPageSize = 20
	MaxPageSize     = 100
)
