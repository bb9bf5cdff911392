package oracle

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/adshao/go-binance/v2"

	"github.com/iho/tokenbank/internal/domain"
)

// NewFeed builds a feed from its wire description.
func NewFeed(spec domain.FeedSpec) (Feed, error) {
	switch spec.Kind {
	case domain.FeedKindStatic:
		if !spec.Price.IsPositive() {
			return nil, fmt.Errorf("static feed needs a positive price, got %s", spec.Price)
		}
		return NewStaticFeed(spec.Price, spec.ObservedAt), nil

	case domain.FeedKindHTTP:
		if _, err := url.ParseRequestURI(spec.URL); err != nil {
			return nil, fmt.Errorf("http feed url %q: %w", spec.URL, err)
		}
		return NewHTTPFeed(nil, spec.URL), nil

	case domain.FeedKindBinance:
		if spec.Symbol == "" {
			return nil, errors.New("binance feed needs a symbol")
		}
		// the ticker endpoint is public, no credentials needed
		return NewBinanceFeed(binance.NewClient("", ""), spec.Symbol), nil

	default:
		return nil, fmt.Errorf("unknown feed kind %q", spec.Kind)
	}
}
