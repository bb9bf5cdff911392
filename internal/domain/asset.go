package domain

import "github.com/shopspring/decimal"

// AssetKind identifies one of the two assets the bank custodies.
type AssetKind string

const (
	// AssetNative is the base value asset; balances are whole base units.
	AssetNative AssetKind = "native"

	// AssetToken is the fungible token asset with its own base units.
	AssetToken AssetKind = "token"
)

var validAssetKinds = map[AssetKind]bool{
	AssetNative: true,
	AssetToken:  true,
}

// IsValid checks if the asset kind is known.
func (k AssetKind) IsValid() bool {
	return validAssetKinds[k]
}

// ValidateAmount checks that amount is a positive whole number of base units.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.IsInteger() {
		return ErrInvalidAmount
	}

	return nil
}
