package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
)

const bankStateColumns = `total_deposited, total_native_held, deposit_count, withdrawal_count, updated_at`

// BankStateRepository implements usecase.BankStateRepository. The state is
// a singleton row seeded by the schema migration.
type BankStateRepository struct {
	pool    *pgxpool.Pool
	retrier *Retrier
}

// NewBankStateRepository creates a new BankStateRepository.
func NewBankStateRepository(pool *pgxpool.Pool) *BankStateRepository {
	return &BankStateRepository{
		pool:    pool,
		retrier: NewRetrier(),
	}
}

// Get reads the state without locking it.
func (r *BankStateRepository) Get(ctx context.Context) (*domain.BankState, error) {
	query := `SELECT ` + bankStateColumns + ` FROM bank_state WHERE id = 1`

	var state *domain.BankState
	err := r.retrier.Retry(ctx, func() error {
		s, err := scanBankState(r.pool.QueryRow(ctx, query))
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// GetForUpdate locks and returns the singleton row. Every mutating
// transition takes this lock first, which serializes transitions
// bank-wide.
func (r *BankStateRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.BankState, error) {
	pgxTx := pgxTxFrom(tx)

	query := `SELECT ` + bankStateColumns + ` FROM bank_state WHERE id = 1 FOR UPDATE`

	return scanBankState(pgxTx.QueryRow(ctx, query))
}

// Update writes the mutated totals and counters.
func (r *BankStateRepository) Update(ctx context.Context, tx usecase.Transaction, state *domain.BankState, updatedAt time.Time) error {
	pgxTx := pgxTxFrom(tx)

	query := `
		UPDATE bank_state
		SET total_deposited = $1,
		    total_native_held = $2,
		    deposit_count = $3,
		    withdrawal_count = $4,
		    updated_at = $5
		WHERE id = 1
	`
	_, err := pgxTx.Exec(ctx, query,
		decimalToNumeric(state.TotalDeposited),
		decimalToNumeric(state.TotalNativeHeld),
		state.DepositCount,
		state.WithdrawalCount,
		updatedAt,
	)

	return err
}

func scanBankState(row rowScanner) (*domain.BankState, error) {
	var (
		state      domain.BankState
		deposited  pgtype.Numeric
		nativeHeld pgtype.Numeric
	)

	err := row.Scan(
		&deposited,
		&nativeHeld,
		&state.DepositCount,
		&state.WithdrawalCount,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.TotalDeposited = numericToDecimal(deposited)
	state.TotalNativeHeld = numericToDecimal(nativeHeld)

	return &state, nil
}
