package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
	"github.com/iho/tokenbank/internal/usecase/mocks"
)

func TestReconciliationUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name               string
		totalDeposited     decimal.Decimal
		aggregates         []decimal.Decimal
		capacity           decimal.Decimal
		expectConsistent   bool
		expectWithinBounds bool
	}{
		{
			name:               "empty bank",
			totalDeposited:     decimal.Zero,
			capacity:           decimal.NewFromInt(100),
			expectConsistent:   true,
			expectWithinBounds: true,
		},
		{
			name:               "totals agree",
			totalDeposited:     decimal.NewFromInt(70),
			aggregates:         []decimal.Decimal{decimal.NewFromInt(30), decimal.NewFromInt(40)},
			capacity:           decimal.NewFromInt(100),
			expectConsistent:   true,
			expectWithinBounds: true,
		},
		{
			name:               "running total drifted above the records",
			totalDeposited:     decimal.NewFromInt(75),
			aggregates:         []decimal.Decimal{decimal.NewFromInt(30), decimal.NewFromInt(40)},
			capacity:           decimal.NewFromInt(100),
			expectConsistent:   false,
			expectWithinBounds: true,
		},
		{
			name:               "records exceed the running total",
			totalDeposited:     decimal.NewFromInt(60),
			aggregates:         []decimal.Decimal{decimal.NewFromInt(30), decimal.NewFromInt(40)},
			capacity:           decimal.NewFromInt(100),
			expectConsistent:   false,
			expectWithinBounds: true,
		},
		{
			name:               "total breached the capacity limit",
			totalDeposited:     decimal.NewFromInt(120),
			aggregates:         []decimal.Decimal{decimal.NewFromInt(120)},
			capacity:           decimal.NewFromInt(100),
			expectConsistent:   false,
			expectWithinBounds: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := mocks.NewMockBalanceRepository()
			for i, aggregate := range tt.aggregates {
				balances.Seed(&domain.BalanceRecord{
					AccountID:        "acc-" + string(rune('a'+i)),
					AggregateBalance: aggregate,
				})
			}

			bank := mocks.NewMockBankStateRepository()
			bank.State.TotalDeposited = tt.totalDeposited

			uc := usecase.NewReconciliationUseCase(balances, bank, usecase.Limits{
				Withdrawal: decimal.NewFromInt(10),
				Capacity:   tt.capacity,
			})

			report, err := uc.CheckConsistency(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if report.Consistent != tt.expectConsistent {
				t.Errorf("expected consistent=%t, got %t (difference %s)",
					tt.expectConsistent, report.Consistent, report.Difference)
			}
			if report.WithinCapacity != tt.expectWithinBounds {
				t.Errorf("expected within_capacity=%t, got %t", tt.expectWithinBounds, report.WithinCapacity)
			}

			expectedDiff := tt.totalDeposited
			for _, aggregate := range tt.aggregates {
				expectedDiff = expectedDiff.Sub(aggregate)
			}
			if !report.Difference.Equal(expectedDiff) {
				t.Errorf("expected difference %s, got %s", expectedDiff, report.Difference)
			}
		})
	}
}

func TestReconciliationUseCase_MustBeConsistent(t *testing.T) {
	t.Run("healthy ledger passes", func(t *testing.T) {
		balances := mocks.NewMockBalanceRepository()
		balances.Seed(&domain.BalanceRecord{AccountID: "acc-1", AggregateBalance: decimal.NewFromInt(50)})

		bank := mocks.NewMockBankStateRepository()
		bank.State.TotalDeposited = decimal.NewFromInt(50)

		uc := usecase.NewReconciliationUseCase(balances, bank, defaultLimits())

		if err := uc.MustBeConsistent(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("drifted ledger fails with the figures", func(t *testing.T) {
		balances := mocks.NewMockBalanceRepository()
		balances.Seed(&domain.BalanceRecord{AccountID: "acc-1", AggregateBalance: decimal.NewFromInt(50)})

		bank := mocks.NewMockBankStateRepository()
		bank.State.TotalDeposited = decimal.NewFromInt(53)

		uc := usecase.NewReconciliationUseCase(balances, bank, defaultLimits())

		err := uc.MustBeConsistent(context.Background())
		if !errors.Is(err, domain.ErrLedgerInconsistent) {
			t.Fatalf("expected ErrLedgerInconsistent, got %v", err)
		}
	})
}
