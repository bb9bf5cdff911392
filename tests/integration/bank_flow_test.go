package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDepositFlows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s := newStack(t, defaultStackConfig())

	t.Run("native deposit credits balance and journal", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-native", amountBody("100"), nil)
		requireStatus(t, w, http.StatusCreated)

		op := decodeOperation(t, w)
		if op.Kind != "deposit_native" {
			t.Errorf("expected kind deposit_native, got %s", op.Kind)
		}
		if !op.NativeValue.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected native value 100, got %s", op.NativeValue)
		}
		if !op.PreviousAggregate.IsZero() || !op.CurrentAggregate.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected aggregate 0 -> 100, got %s -> %s", op.PreviousAggregate, op.CurrentAggregate)
		}
		if op.AccountVersion != 1 {
			t.Errorf("expected account version 1, got %d", op.AccountVersion)
		}

		record, err := s.balances.GetByAccountID(ctx, "acc-native")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.NativeBalance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected native balance 100, got %s", record.NativeBalance)
		}
		if !record.AggregateBalance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected aggregate balance 100, got %s", record.AggregateBalance)
		}

		state, err := s.bank.Get(ctx)
		if err != nil {
			t.Fatalf("failed to read bank state: %v", err)
		}
		if state.DepositCount != 1 {
			t.Errorf("expected deposit count 1, got %d", state.DepositCount)
		}
		if !state.TotalDeposited.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected total deposited 100, got %s", state.TotalDeposited)
		}
		if !state.TotalNativeHeld.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected native held 100, got %s", state.TotalNativeHeld)
		}
	})

	t.Run("token deposit converts at the oracle price", func(t *testing.T) {
		s.db.Reset(ctx)

		// 20 tokens at price 5 settle as 100 native units of value
		w := s.do(t, http.MethodPost, "/api/v1/deposits/token", "acc-token", amountBody("20"), nil)
		requireStatus(t, w, http.StatusCreated)

		op := decodeOperation(t, w)
		if op.Kind != "deposit_token" {
			t.Errorf("expected kind deposit_token, got %s", op.Kind)
		}
		if !op.Amount.Equal(decimal.NewFromInt(20)) {
			t.Errorf("expected amount 20, got %s", op.Amount)
		}
		if !op.NativeValue.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected native value 100, got %s", op.NativeValue)
		}
		if !op.Price.Equal(decimal.NewFromInt(5)) {
			t.Errorf("expected price 5, got %s", op.Price)
		}

		call, ok := s.tokenGW.lastCall()
		if !ok {
			t.Fatal("expected a custody pull")
		}
		if call.Path != "/transfers/in" {
			t.Errorf("expected pull via /transfers/in, got %s", call.Path)
		}
		if call.AccountID != "acc-token" || call.Amount != "20" {
			t.Errorf("unexpected pull %+v", call)
		}

		record, err := s.balances.GetByAccountID(ctx, "acc-token")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.TokenBalance.Equal(decimal.NewFromInt(20)) {
			t.Errorf("expected token balance 20, got %s", record.TokenBalance)
		}
		if !record.AggregateBalance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected aggregate balance 100, got %s", record.AggregateBalance)
		}
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-zero", amountBody("0"), nil)
		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("rejects malformed amount", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-bad", amountBody("not-a-number"), nil)
		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("rejected custody pull leaves no trace", func(t *testing.T) {
		s.db.Reset(ctx)
		s.tokenGW.rejectWith("insufficient holdings")
		defer s.tokenGW.accept()

		w := s.do(t, http.MethodPost, "/api/v1/deposits/token", "acc-rejected", amountBody("20"), nil)
		requireStatus(t, w, http.StatusBadRequest)

		state, err := s.bank.Get(ctx)
		if err != nil {
			t.Fatalf("failed to read bank state: %v", err)
		}
		if state.DepositCount != 0 {
			t.Errorf("expected no recorded deposits, got %d", state.DepositCount)
		}

		ops, err := s.journal.ListByAccount(ctx, "acc-rejected", 10, 0)
		if err != nil {
			t.Fatalf("failed to list operations: %v", err)
		}
		if len(ops) != 0 {
			t.Errorf("expected an empty journal, got %d entries", len(ops))
		}
	})
}

func TestCapacityCap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	cfg := defaultStackConfig()
	cfg.capacity = 10_000
	s := newStack(t, cfg)
	s.db.Reset(ctx)

	w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-cap", amountBody("9000"), nil)
	requireStatus(t, w, http.StatusCreated)

	// 9000 of 10000 used; another 2000 does not fit
	w = s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-cap", amountBody("2000"), nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)

	state, err := s.bank.Get(ctx)
	if err != nil {
		t.Fatalf("failed to read bank state: %v", err)
	}
	if !state.TotalDeposited.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("expected total deposited 9000 after the rejection, got %s", state.TotalDeposited)
	}

	// the remainder still fits exactly
	w = s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-cap", amountBody("1000"), nil)
	requireStatus(t, w, http.StatusCreated)
}

func TestWithdrawFlows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s := newStack(t, defaultStackConfig())

	t.Run("native withdrawal debits and pays out", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-w", amountBody("300"), nil)
		requireStatus(t, w, http.StatusCreated)

		w = s.do(t, http.MethodPost, "/api/v1/withdrawals/native", "acc-w", amountBody("200"), nil)
		requireStatus(t, w, http.StatusCreated)

		op := decodeOperation(t, w)
		if op.Kind != "withdrawal_native" {
			t.Errorf("expected kind withdrawal_native, got %s", op.Kind)
		}
		if !op.PreviousAggregate.Equal(decimal.NewFromInt(300)) || !op.CurrentAggregate.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected aggregate 300 -> 100, got %s -> %s", op.PreviousAggregate, op.CurrentAggregate)
		}

		call, ok := s.nativeGW.lastCall()
		if !ok {
			t.Fatal("expected a payout call")
		}
		if call.Path != "/payouts" || call.AccountID != "acc-w" || call.Amount != "200" {
			t.Errorf("unexpected payout %+v", call)
		}

		record, err := s.balances.GetByAccountID(ctx, "acc-w")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.NativeBalance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected native balance 100, got %s", record.NativeBalance)
		}

		state, err := s.bank.Get(ctx)
		if err != nil {
			t.Fatalf("failed to read bank state: %v", err)
		}
		if state.WithdrawalCount != 1 {
			t.Errorf("expected withdrawal count 1, got %d", state.WithdrawalCount)
		}
		if !state.TotalNativeHeld.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected native held 100, got %s", state.TotalNativeHeld)
		}
	})

	t.Run("token withdrawal returns units to custody", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/deposits/token", "acc-tw", amountBody("20"), nil)
		requireStatus(t, w, http.StatusCreated)

		w = s.do(t, http.MethodPost, "/api/v1/withdrawals/token", "acc-tw", amountBody("8"), nil)
		requireStatus(t, w, http.StatusCreated)

		op := decodeOperation(t, w)
		// 8 tokens at price 5 release 40 native units of value
		if !op.NativeValue.Equal(decimal.NewFromInt(40)) {
			t.Errorf("expected native value 40, got %s", op.NativeValue)
		}

		call, ok := s.tokenGW.lastCall()
		if !ok {
			t.Fatal("expected a custody push")
		}
		if call.Path != "/transfers/out" || call.Amount != "8" {
			t.Errorf("unexpected push %+v", call)
		}

		record, err := s.balances.GetByAccountID(ctx, "acc-tw")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.TokenBalance.Equal(decimal.NewFromInt(12)) {
			t.Errorf("expected token balance 12, got %s", record.TokenBalance)
		}
		if !record.AggregateBalance.Equal(decimal.NewFromInt(60)) {
			t.Errorf("expected aggregate balance 60, got %s", record.AggregateBalance)
		}
	})

	t.Run("rejects withdrawal over the per-transaction limit", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/withdrawals/native", "acc-limit", amountBody("10001"), nil)
		requireStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("rejects withdrawal from an empty account", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/withdrawals/native", "acc-empty", amountBody("10"), nil)
		requireStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("failed payout rolls the debit back", func(t *testing.T) {
		s.db.Reset(ctx)

		w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-roll", amountBody("500"), nil)
		requireStatus(t, w, http.StatusCreated)

		s.nativeGW.rejectWith("settlement offline")
		defer s.nativeGW.accept()

		w = s.do(t, http.MethodPost, "/api/v1/withdrawals/native", "acc-roll", amountBody("200"), nil)
		requireStatus(t, w, http.StatusBadGateway)

		record, err := s.balances.GetByAccountID(ctx, "acc-roll")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.NativeBalance.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected the debit rolled back to 500, got %s", record.NativeBalance)
		}

		ops, err := s.journal.ListByAccount(ctx, "acc-roll", 10, 0)
		if err != nil {
			t.Fatalf("failed to list operations: %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("expected only the deposit in the journal, got %d entries", len(ops))
		}

		state, err := s.bank.Get(ctx)
		if err != nil {
			t.Fatalf("failed to read bank state: %v", err)
		}
		if state.WithdrawalCount != 0 {
			t.Errorf("expected no recorded withdrawals, got %d", state.WithdrawalCount)
		}
	})
}

func TestReceiptFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s := newStack(t, defaultStackConfig())
	s.db.Reset(ctx)

	// the open mode grants every caller the administrative role, which
	// covers receipt submission
	w := s.do(t, http.MethodPost, "/api/v1/receipts/native", "operator-1", map[string]string{
		"account_id": "customer-9",
		"amount":     "250",
	}, nil)
	requireStatus(t, w, http.StatusCreated)

	op := decodeOperation(t, w)
	if op.AccountID != "customer-9" {
		t.Errorf("expected the receipt credited to customer-9, got %s", op.AccountID)
	}

	record, err := s.balances.GetByAccountID(ctx, "customer-9")
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if !record.NativeBalance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected native balance 250, got %s", record.NativeBalance)
	}

	// receipts settle already-held funds; no custody call is made
	if s.nativeGW.callCount() != 0 || s.tokenGW.callCount() != 0 {
		t.Error("receipts must not touch the custody gateways")
	}
}
