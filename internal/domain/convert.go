package domain

import "github.com/shopspring/decimal"

// Scale is the fixed-point factor for oracle price quotations. A price equal
// to Scale means one token base unit is worth exactly one native base unit.
var Scale = decimal.New(1, 20)

// TokenToNative converts token base units to native base units at price,
// multiplying before dividing and truncating the result to a whole unit.
// price must be positive; readings come from the oracle adapter, which
// rejects non-positive prices.
func TokenToNative(amount, price decimal.Decimal) decimal.Decimal {
	q, _ := amount.Mul(price).QuoRem(Scale, 0)
	return q
}

// NativeToToken converts native base units to token base units at price,
// with the same multiply-then-truncate discipline as TokenToNative.
func NativeToToken(amount, price decimal.Decimal) decimal.Decimal {
	q, _ := amount.Mul(Scale).QuoRem(price, 0)
	return q
}

// NativeEquivalent values token base units for ledger accounting as
// amount * Scale / price, truncated. Deposits and withdrawals share this
// one valuation so a deposit and withdrawal of the same token amount at the
// same price cancel exactly.
func NativeEquivalent(amount, price decimal.Decimal) decimal.Decimal {
	q, _ := amount.Mul(Scale).QuoRem(price, 0)
	return q
}
