package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// ReconciliationUseCase verifies the incremental accounting against the
// stored records.
type ReconciliationUseCase struct {
	balanceRepo BalanceRepository
	bankRepo    BankStateRepository
	limits      Limits
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	balanceRepo BalanceRepository,
	bankRepo BankStateRepository,
	limits Limits,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		balanceRepo: balanceRepo,
		bankRepo:    bankRepo,
		limits:      limits,
	}
}

// ConsistencyReport represents the result of a consistency check
type ConsistencyReport struct {
	TotalDeposited decimal.Decimal
	AggregateSum   decimal.Decimal
	Difference     decimal.Decimal
	CapacityLimit  decimal.Decimal
	WithinCapacity bool
	Consistent     bool
	CheckedAt      time.Time
}

// CheckConsistency verifies the two invariants the incremental accounting
// promises: TotalDeposited equals the sum of all aggregate balances, and
// TotalDeposited stays within the capacity limit.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	state, err := uc.bankRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	aggregateSum, err := uc.balanceRepo.SumAggregate(ctx)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		TotalDeposited: state.TotalDeposited,
		AggregateSum:   aggregateSum,
		Difference:     state.TotalDeposited.Sub(aggregateSum),
		CapacityLimit:  uc.limits.Capacity,
		WithinCapacity: state.TotalDeposited.LessThanOrEqual(uc.limits.Capacity),
		CheckedAt:      time.Now().UTC(),
	}
	report.Consistent = report.Difference.IsZero() && report.WithinCapacity

	return report, nil
}

// MustBeConsistent runs CheckConsistency and converts a failed report into
// an error, for callers that only need a pass or fail.
func (uc *ReconciliationUseCase) MustBeConsistent(ctx context.Context) error {
	report, err := uc.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	if !report.Consistent {
		return fmt.Errorf(
			"%w: total_deposited=%s aggregate_sum=%s difference=%s within_capacity=%t",
			domain.ErrLedgerInconsistent,
			report.TotalDeposited.String(),
			report.AggregateSum.String(),
			report.Difference.String(),
			report.WithinCapacity,
		)
	}

	return nil
}
