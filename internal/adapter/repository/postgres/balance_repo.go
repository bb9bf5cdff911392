package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
)

const balanceColumns = `account_id, native_balance, token_balance, aggregate_balance, version, created_at, updated_at`

// BalanceRepository implements usecase.BalanceRepository. Reads off the
// pool retry on transient serialization errors; everything under a
// transaction runs exactly once.
type BalanceRepository struct {
	pool    *pgxpool.Pool
	retrier *Retrier
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(pool *pgxpool.Pool) *BalanceRepository {
	return &BalanceRepository{
		pool:    pool,
		retrier: NewRetrier(),
	}
}

// GetByAccountID retrieves one balance record.
func (r *BalanceRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.BalanceRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE account_id = $1`

	var record *domain.BalanceRecord
	err := r.retrier.Retry(ctx, func() error {
		rec, err := scanBalance(r.pool.QueryRow(ctx, query, accountID))
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetOrCreateForUpdate inserts the zero record if the account has none,
// then locks and returns the row. First deposits create records lazily
// through this path.
func (r *BalanceRepository) GetOrCreateForUpdate(ctx context.Context, tx usecase.Transaction, accountID string, now time.Time) (*domain.BalanceRecord, error) {
	pgxTx := pgxTxFrom(tx)

	insert := `
		INSERT INTO balances (account_id, native_balance, token_balance, aggregate_balance, version, created_at, updated_at)
		VALUES ($1, 0, 0, 0, 0, $2, $2)
		ON CONFLICT (account_id) DO NOTHING
	`
	if _, err := pgxTx.Exec(ctx, insert, accountID, now); err != nil {
		return nil, err
	}

	query := `SELECT ` + balanceColumns + ` FROM balances WHERE account_id = $1 FOR UPDATE`

	return scanBalance(pgxTx.QueryRow(ctx, query, accountID))
}

// GetByAccountIDForUpdate locks and returns the row without creating it.
func (r *BalanceRepository) GetByAccountIDForUpdate(ctx context.Context, tx usecase.Transaction, accountID string) (*domain.BalanceRecord, error) {
	pgxTx := pgxTxFrom(tx)

	query := `SELECT ` + balanceColumns + ` FROM balances WHERE account_id = $1 FOR UPDATE`

	return scanBalance(pgxTx.QueryRow(ctx, query, accountID))
}

// UpdateBalances writes the mutated balance triple and bumps the row
// version.
func (r *BalanceRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, record *domain.BalanceRecord, updatedAt time.Time) error {
	pgxTx := pgxTxFrom(tx)

	query := `
		UPDATE balances
		SET native_balance = $2,
		    token_balance = $3,
		    aggregate_balance = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE account_id = $1
	`
	_, err := pgxTx.Exec(ctx, query,
		record.AccountID,
		decimalToNumeric(record.NativeBalance),
		decimalToNumeric(record.TokenBalance),
		decimalToNumeric(record.AggregateBalance),
		updatedAt,
	)

	return err
}

// List lists balance records with pagination.
func (r *BalanceRepository) List(ctx context.Context, limit, offset int) ([]*domain.BalanceRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances ORDER BY account_id LIMIT $1 OFFSET $2`

	var records []*domain.BalanceRecord
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			rec, err := scanBalance(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// SumAggregate totals every aggregate balance, for reconciliation against
// the bank's running total.
func (r *BalanceRepository) SumAggregate(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(aggregate_balance), 0) FROM balances`

	var sum decimal.Decimal
	err := r.retrier.Retry(ctx, func() error {
		var n pgtype.Numeric
		if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
			return err
		}
		sum = numericToDecimal(n)
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*domain.BalanceRecord, error) {
	var (
		record    domain.BalanceRecord
		native    pgtype.Numeric
		token     pgtype.Numeric
		aggregate pgtype.Numeric
	)

	err := row.Scan(
		&record.AccountID,
		&native,
		&token,
		&aggregate,
		&record.Version,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	record.NativeBalance = numericToDecimal(native)
	record.TokenBalance = numericToDecimal(token)
	record.AggregateBalance = numericToDecimal(aggregate)

	return &record, nil
}
