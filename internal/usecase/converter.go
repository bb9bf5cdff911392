package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// Converter values one asset in terms of the other. Every call reads a
// fresh price through the oracle reference; a rejected reading fails the
// call outright, with no retry and no fallback value.
type Converter struct {
	prices PriceSource
}

// NewConverter creates a new Converter.
func NewConverter(prices PriceSource) *Converter {
	return &Converter{prices: prices}
}

// TokenToNativeValue quotes amount token units in native units at the
// current price.
func (c *Converter) TokenToNativeValue(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Decimal{}, domain.ErrZeroAmount
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}

	price, err := c.prices.Price(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	value := domain.TokenToNative(amount, price)
	if value.IsZero() {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	return value, nil
}

// NativeToTokenValue quotes amount native units in token units at the
// current price.
func (c *Converter) NativeToTokenValue(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Decimal{}, domain.ErrZeroAmount
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}

	price, err := c.prices.Price(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	value := domain.NativeToToken(amount, price)
	if value.IsZero() {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	return value, nil
}

// nativeEquivalent values a token amount for a deposit or withdrawal and
// returns the price used so the caller can journal it. The zero check runs
// before the price fetch: a zero amount never reaches the oracle.
func (c *Converter) nativeEquivalent(ctx context.Context, amount decimal.Decimal) (value, price decimal.Decimal, err error) {
	if amount.IsZero() {
		return decimal.Decimal{}, decimal.Decimal{}, domain.ErrZeroAmount
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}

	price, err = c.prices.Price(ctx)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}

	value = domain.NativeEquivalent(amount, price)
	if value.IsZero() {
		return decimal.Decimal{}, decimal.Decimal{}, domain.ErrInvalidAmount
	}

	return value, price, nil
}
