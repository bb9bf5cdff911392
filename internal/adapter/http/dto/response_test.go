package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/tokenbank/internal/domain"
)

func TestBalanceFromDomain(t *testing.T) {
	now := time.Now().UTC()
	rec := &domain.BalanceRecord{
		AccountID:        "acc-1",
		NativeBalance:    decimal.NewFromInt(100),
		TokenBalance:     decimal.NewFromInt(7),
		AggregateBalance: decimal.NewFromInt(114),
		UpdatedAt:        now,
	}

	resp := BalanceFromDomain(rec)
	assert.Equal(t, "acc-1", resp.AccountID)
	assert.True(t, rec.NativeBalance.Equal(resp.Native))
	assert.True(t, rec.TokenBalance.Equal(resp.Token))
	assert.True(t, rec.AggregateBalance.Equal(resp.Aggregate))
	assert.True(t, now.Equal(resp.UpdatedAt))
}

func TestBalanceResponseMarshalsAmountsAsStrings(t *testing.T) {
	resp := BalanceResponse{
		AccountID: "acc-1",
		Native:    decimal.NewFromInt(1_000_000_000),
	}

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"native":"1000000000"`)
}

func TestOperationsFromDomain(t *testing.T) {
	ops := []*domain.Operation{
		{
			ID:          "op-1",
			AccountID:   "acc-1",
			Kind:        domain.OperationDepositToken,
			Amount:      decimal.NewFromInt(5),
			NativeValue: decimal.NewFromInt(10),
		},
		{
			ID:        "op-2",
			AccountID: "acc-1",
			Kind:      domain.OperationWithdrawalNative,
			Amount:    decimal.NewFromInt(3),
		},
	}

	out := OperationsFromDomain(ops)
	require.Len(t, out, 2)
	assert.Equal(t, "op-1", out[0].ID)
	assert.Equal(t, string(domain.OperationDepositToken), out[0].Kind)
	assert.True(t, decimal.NewFromInt(10).Equal(out[0].NativeValue))
	assert.Equal(t, "op-2", out[1].ID)
}

func TestOperationsFromDomainEmpty(t *testing.T) {
	out := OperationsFromDomain(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}
