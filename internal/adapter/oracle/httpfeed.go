package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// HTTPDoer is the slice of http.Client the feed needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxPriceBodyBytes = 1 << 16

// HTTPFeed reads a JSON document of the form
//
//	{"price": "200000000000000000000", "observed_at": 1724580000}
//
// from a single URL. The price is already in fixed-point units;
// observed_at is unix seconds. A payload without observed_at reads as
// infinitely stale and is rejected downstream.
type HTTPFeed struct {
	client HTTPDoer
	url    string
}

// NewHTTPFeed creates a new HTTPFeed. A nil client falls back to a
// default with a 10 second timeout.
func NewHTTPFeed(client HTTPDoer, url string) *HTTPFeed {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &HTTPFeed{client: client, url: url}
}

type priceDocument struct {
	Price      string `json:"price"`
	ObservedAt int64  `json:"observed_at"`
}

// Latest fetches and parses one reading.
func (f *HTTPFeed) Latest(ctx context.Context) (domain.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Reading{}, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var doc priceDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPriceBodyBytes)).Decode(&doc); err != nil {
		return domain.Reading{}, fmt.Errorf("decode price payload: %w", err)
	}

	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("parse price %q: %w", doc.Price, err)
	}

	reading := domain.Reading{Price: price}
	if doc.ObservedAt > 0 {
		reading.ObservedAt = time.Unix(doc.ObservedAt, 0).UTC()
	}

	return reading, nil
}

// Describe returns the feed label.
func (f *HTTPFeed) Describe() string {
	return "http:" + f.url
}
