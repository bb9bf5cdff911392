package integration

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConcurrentDeposits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s := newStack(t, defaultStackConfig())
	s.db.Reset(ctx)

	const (
		workers           = 8
		depositsPerWorker = 5
	)

	var wg sync.WaitGroup
	errs := make(chan string, workers*depositsPerWorker)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < depositsPerWorker; j++ {
				w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-conc", amountBody("10"), nil)
				if w.Code != http.StatusCreated {
					errs <- w.Body.String()
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Errorf("deposit failed: %s", msg)
	}

	total := int64(workers * depositsPerWorker)

	record, err := s.balances.GetByAccountID(ctx, "acc-conc")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if !record.NativeBalance.Equal(decimal.NewFromInt(total * 10)) {
		t.Errorf("expected balance %d, got %s", total*10, record.NativeBalance)
	}
	if record.Version != total {
		t.Errorf("expected version %d, got %d", total, record.Version)
	}

	state, err := s.bank.Get(ctx)
	if err != nil {
		t.Fatalf("failed to read bank state: %v", err)
	}
	if state.DepositCount != total {
		t.Errorf("expected deposit count %d, got %d", total, state.DepositCount)
	}
	if !state.TotalDeposited.Equal(decimal.NewFromInt(total * 10)) {
		t.Errorf("expected total deposited %d, got %s", total*10, state.TotalDeposited)
	}

	// the journal must chain without gaps even under contention
	ops, err := s.journal.ListByAccount(ctx, "acc-conc", int(total), 0)
	if err != nil {
		t.Fatalf("failed to list operations: %v", err)
	}
	if int64(len(ops)) != total {
		t.Fatalf("expected %d journal entries, got %d", total, len(ops))
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].AccountVersion < ops[j].AccountVersion })

	previous := decimal.Zero
	for _, op := range ops {
		if !op.PreviousAggregate.Equal(previous) {
			t.Fatalf("broken chain at version %d: previous %s, expected %s",
				op.AccountVersion, op.PreviousAggregate, previous)
		}
		previous = op.CurrentAggregate
	}
	if !previous.Equal(decimal.NewFromInt(total * 10)) {
		t.Errorf("expected the chain to end at %d, got %s", total*10, previous)
	}
}

func TestConcurrentMixedFlows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s := newStack(t, defaultStackConfig())
	s.db.Reset(ctx)

	// fund the account so every withdrawal can be covered
	w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-mixed", amountBody("1000"), nil)
	requireStatus(t, w, http.StatusCreated)

	const rounds = 10

	var wg sync.WaitGroup
	errs := make(chan string, rounds*2)

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-mixed", amountBody("25"), nil)
			if w.Code != http.StatusCreated {
				errs <- "deposit: " + w.Body.String()
			}
		}()
		go func() {
			defer wg.Done()
			w := s.do(t, http.MethodPost, "/api/v1/withdrawals/native", "acc-mixed", amountBody("25"), nil)
			if w.Code != http.StatusCreated {
				errs <- "withdrawal: " + w.Body.String()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Errorf("operation failed: %s", msg)
	}

	// equal deposits and withdrawals cancel out around the initial funding
	record, err := s.balances.GetByAccountID(ctx, "acc-mixed")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if !record.NativeBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance back at 1000, got %s", record.NativeBalance)
	}

	state, err := s.bank.Get(ctx)
	if err != nil {
		t.Fatalf("failed to read bank state: %v", err)
	}
	if !state.TotalNativeHeld.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected native held back at 1000, got %s", state.TotalNativeHeld)
	}
	if state.DepositCount != rounds+1 || state.WithdrawalCount != rounds {
		t.Errorf("expected %d deposits and %d withdrawals, got %d/%d",
			rounds+1, rounds, state.DepositCount, state.WithdrawalCount)
	}
}
