package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/tests/testutil"
)

func TestIdempotentSettlement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s := newStack(t, defaultStackConfig())

	t.Run("a replayed deposit settles once", func(t *testing.T) {
		s.db.Reset(ctx)

		key := "itest-" + testutil.GenerateID()
		headers := map[string]string{"Idempotency-Key": key}

		w1 := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-idem", amountBody("100"), headers)
		requireStatus(t, w1, http.StatusCreated)
		op1 := decodeOperation(t, w1)

		w2 := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-idem", amountBody("100"), headers)
		requireStatus(t, w2, http.StatusCreated)
		op2 := decodeOperation(t, w2)

		if op1.ID != op2.ID {
			t.Errorf("expected the cached entry back, got %s and %s", op1.ID, op2.ID)
		}
		if w2.Header().Get("X-Idempotency-Replay") != "true" {
			t.Error("expected the replay marker header")
		}

		record, err := s.balances.GetByAccountID(ctx, "acc-idem")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.NativeBalance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected a single credit of 100, got %s", record.NativeBalance)
		}
	})

	t.Run("a rejection releases the key for reuse", func(t *testing.T) {
		s.db.Reset(ctx)

		key := "itest-" + testutil.GenerateID()
		headers := map[string]string{"Idempotency-Key": key}

		w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-retry", amountBody("0"), headers)
		requireStatus(t, w, http.StatusBadRequest)

		// the same key now carries the corrected request
		w = s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-retry", amountBody("100"), headers)
		requireStatus(t, w, http.StatusCreated)

		record, err := s.balances.GetByAccountID(ctx, "acc-retry")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.NativeBalance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected the retry to settle, got %s", record.NativeBalance)
		}
	})

	t.Run("requests without a key settle independently", func(t *testing.T) {
		s.db.Reset(ctx)

		for i := 0; i < 2; i++ {
			w := s.do(t, http.MethodPost, "/api/v1/deposits/native", "acc-plain", amountBody("100"), nil)
			requireStatus(t, w, http.StatusCreated)
		}

		record, err := s.balances.GetByAccountID(ctx, "acc-plain")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !record.NativeBalance.Equal(decimal.NewFromInt(200)) {
			t.Errorf("expected two independent credits, got %s", record.NativeBalance)
		}
	})
}
