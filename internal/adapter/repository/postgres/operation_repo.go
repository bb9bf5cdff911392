package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
)

const operationColumns = `id, account_id, kind, amount, native_value, price, previous_aggregate, current_aggregate, account_version, created_at`

// OperationRepository implements usecase.OperationRepository. The journal
// is append-only; entries are written in the transition's transaction and
// never updated.
type OperationRepository struct {
	pool    *pgxpool.Pool
	retrier *Retrier
}

// NewOperationRepository creates a new OperationRepository.
func NewOperationRepository(pool *pgxpool.Pool) *OperationRepository {
	return &OperationRepository{
		pool:    pool,
		retrier: NewRetrier(),
	}
}

// Create journals one operation within a transaction.
func (r *OperationRepository) Create(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error {
	pgxTx := pgxTxFrom(tx)

	query := `
		INSERT INTO operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := pgxTx.Exec(ctx, query,
		op.ID,
		op.AccountID,
		string(op.Kind),
		decimalToNumeric(op.Amount),
		decimalToNumeric(op.NativeValue),
		decimalToNumeric(op.Price),
		decimalToNumeric(op.PreviousAggregate),
		decimalToNumeric(op.CurrentAggregate),
		op.AccountVersion,
		op.CreatedAt,
	)

	return err
}

// GetByID retrieves one journal entry.
func (r *OperationRepository) GetByID(ctx context.Context, id string) (*domain.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`

	var op *domain.Operation
	err := r.retrier.Retry(ctx, func() error {
		o, err := scanOperation(r.pool.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		op = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return op, nil
}

// ListByAccount lists an account's journal entries, newest first.
func (r *OperationRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var ops []*domain.Operation
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		ops = ops[:0]
		for rows.Next() {
			op, err := scanOperation(rows)
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return ops, nil
}

func scanOperation(row rowScanner) (*domain.Operation, error) {
	var (
		op                domain.Operation
		kind              string
		amount            pgtype.Numeric
		nativeValue       pgtype.Numeric
		price             pgtype.Numeric
		previousAggregate pgtype.Numeric
		currentAggregate  pgtype.Numeric
	)

	err := row.Scan(
		&op.ID,
		&op.AccountID,
		&kind,
		&amount,
		&nativeValue,
		&price,
		&previousAggregate,
		&currentAggregate,
		&op.AccountVersion,
		&op.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOperationNotFound
		}

		return nil, err
	}

	op.Kind = domain.OperationKind(kind)
	op.Amount = numericToDecimal(amount)
	op.NativeValue = numericToDecimal(nativeValue)
	op.Price = numericToDecimal(price)
	op.PreviousAggregate = numericToDecimal(previousAggregate)
	op.CurrentAggregate = numericToDecimal(currentAggregate)

	return &op, nil
}
