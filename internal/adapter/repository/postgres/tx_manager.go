package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/tokenbank/internal/usecase"
)

// txBeginner is the part of pgxpool.Pool the manager uses; pgxmock
// implements it for tests.
type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Every settlement
// transition runs inside one of these transactions; the bank state row
// lock taken right after Begin serializes them.
type TxManager struct {
	pool txBeginner
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool txBeginner) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Tx carries a pgx transaction across the usecase boundary. Repositories
// in this package unwrap it with pgxTxFrom to run their statements on it.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. After a commit it reports
// pgx.ErrTxClosed, which deferred rollbacks discard.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// pgxTxFrom unwraps a transaction minted by this package's TxManager.
// Transitions never hand repositories anything else.
func pgxTxFrom(tx usecase.Transaction) pgx.Tx {
	return tx.(*Tx).tx
}
