package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
)

// StaticFeed pins a single price. The observation instant is fixed when
// the feed is built, so a pinned price goes stale like any other once it
// outlives the configured reading age.
type StaticFeed struct {
	price      decimal.Decimal
	observedAt time.Time
}

// NewStaticFeed creates a new StaticFeed. A zero observedAt pins the
// observation to the moment the feed is built.
func NewStaticFeed(price decimal.Decimal, observedAt time.Time) *StaticFeed {
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	return &StaticFeed{price: price, observedAt: observedAt}
}

// Latest returns the pinned reading.
func (f *StaticFeed) Latest(ctx context.Context) (domain.Reading, error) {
	return domain.Reading{Price: f.price, ObservedAt: f.observedAt}, nil
}

// Describe returns the feed label.
func (f *StaticFeed) Describe() string {
	return "static:" + f.price.String()
}
