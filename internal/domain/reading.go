package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxReadingAge is how old a price observation may be before it is
// rejected as stale.
const DefaultMaxReadingAge = 3600 * time.Second

// Reading is a single price observation from a feed. Readings are fetched
// once per operation and never cached or persisted.
type Reading struct {
	Price      decimal.Decimal
	ObservedAt time.Time
}

// Feed kinds accepted by FeedSpec.
const (
	FeedKindStatic  = "static"
	FeedKindHTTP    = "http"
	FeedKindBinance = "binance"
)

// FeedSpec describes an oracle feed the bank should trust. Kind selects the
// implementation; the other fields apply per kind.
type FeedSpec struct {
	Kind       string
	URL        string          // http feeds
	Symbol     string          // binance feeds
	Price      decimal.Decimal // static feeds
	ObservedAt time.Time       // static feeds; zero means the swap instant
}

// Validate rejects readings that must not be trusted: a zero or negative
// price, or an observation older than maxAge relative to now.
func (r Reading) Validate(now time.Time, maxAge time.Duration) error {
	if !r.Price.IsPositive() {
		return ErrOracleCompromised
	}

	if now.Sub(r.ObservedAt) > maxAge {
		return ErrStalePrice
	}

	return nil
}
