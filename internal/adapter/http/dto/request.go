package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// DepositRequest asks the bank to record a deposit for the caller's
// account. Amounts are integer base units carried as decimal strings.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ReceiptRequest records a bare incoming native transfer observed by the
// settlement layer. Unlike DepositRequest the target account is explicit;
// only operators and admins may post these.
type ReceiptRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// WithdrawRequest asks the bank to pay out from the caller's account.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ReplaceOracleRequest swaps the active price feed. Kind selects the
// implementation; the other fields apply per kind, matching FeedSpec.
type ReplaceOracleRequest struct {
	Kind       string          `json:"kind"`
	URL        string          `json:"url,omitempty"`
	Symbol     string          `json:"symbol,omitempty"`
	Price      decimal.Decimal `json:"price,omitempty"`
	ObservedAt *time.Time      `json:"observed_at,omitempty"`
}

// ToFeedSpec converts to the domain feed description.
func (r *ReplaceOracleRequest) ToFeedSpec() domain.FeedSpec {
	spec := domain.FeedSpec{
		Kind:   r.Kind,
		URL:    r.URL,
		Symbol: r.Symbol,
		Price:  r.Price,
	}
	if r.ObservedAt != nil {
		spec.ObservedAt = *r.ObservedAt
	}
	return spec
}
