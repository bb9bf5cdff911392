package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// BinanceFeed reads the symbol's last trade price from the public 24h
// ticker. The exchange quotes whole asset units; both assets denominate
// base units with the same exponent, so the quote converts to the
// fixed-point representation by the scale factor alone. The ticker's
// close time drives the staleness check.
type BinanceFeed struct {
	client *binance.Client
	symbol string
}

// NewBinanceFeed creates a new BinanceFeed.
func NewBinanceFeed(client *binance.Client, symbol string) *BinanceFeed {
	return &BinanceFeed{client: client, symbol: symbol}
}

// Latest fetches one reading from the ticker endpoint.
func (f *BinanceFeed) Latest(ctx context.Context) (domain.Reading, error) {
	stats, err := f.client.NewListPriceChangeStatsService().Symbol(f.symbol).Do(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("binance ticker: %w", err)
	}
	if len(stats) == 0 {
		return domain.Reading{}, fmt.Errorf("binance returned no ticker for %s", f.symbol)
	}

	price, err := decimal.NewFromString(stats[0].LastPrice)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("parse binance price %q: %w", stats[0].LastPrice, err)
	}

	return domain.Reading{
		Price:      price.Mul(domain.Scale),
		ObservedAt: time.UnixMilli(stats[0].CloseTime).UTC(),
	}, nil
}

// Describe returns the feed label.
func (f *BinanceFeed) Describe() string {
	return "binance:" + f.symbol
}
