package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/metrics"
)

// Feed produces price readings from one upstream source.
type Feed interface {
	Latest(ctx context.Context) (domain.Reading, error)
	Describe() string
}

// Adapter guards every price the settlement engine sees. It holds the
// active feed reference, fetches a fresh reading per call, and validates
// the reading before exposing its price. A feed that cannot produce a
// reading is treated the same as one producing garbage: the caller gets
// an error and no fallback value. Implements usecase.OracleControl.
type Adapter struct {
	mu      sync.RWMutex
	feed    Feed
	maxAge  time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewAdapter creates a new Adapter around the initial feed. A maxAge of
// zero or below falls back to domain.DefaultMaxReadingAge.
func NewAdapter(feed Feed, maxAge time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Adapter {
	if maxAge <= 0 {
		maxAge = domain.DefaultMaxReadingAge
	}

	return &Adapter{
		feed:    feed,
		maxAge:  maxAge,
		logger:  logger,
		metrics: m,
	}
}

// Price returns the current validated price.
func (a *Adapter) Price(ctx context.Context) (decimal.Decimal, error) {
	a.mu.RLock()
	feed := a.feed
	a.mu.RUnlock()

	reading, err := a.fetch(ctx, feed)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return reading.Price, nil
}

// Replace swaps the active feed for the one spec describes. The candidate
// must produce one valid reading before the swap happens; otherwise the
// current feed stays in place and the error reports why.
func (a *Adapter) Replace(ctx context.Context, spec domain.FeedSpec) (string, error) {
	feed, err := NewFeed(spec)
	if err != nil {
		return "", err
	}

	if _, err := a.fetch(ctx, feed); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.feed = feed
	a.mu.Unlock()

	label := feed.Describe()
	a.logger.Info().Str("feed", label).Msg("oracle feed replaced")

	return label, nil
}

// SetFeed swaps the active feed without a probe reading, for callers that
// already hold a constructed Feed. Runtime swaps go through Replace.
func (a *Adapter) SetFeed(feed Feed) {
	a.mu.Lock()
	a.feed = feed
	a.mu.Unlock()
}

// Describe returns the active feed's label.
func (a *Adapter) Describe() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.feed.Describe()
}

func (a *Adapter) fetch(ctx context.Context, feed Feed) (domain.Reading, error) {
	if a.metrics != nil {
		a.metrics.OracleRequests.Inc()
	}

	reading, err := feed.Latest(ctx)
	if err != nil {
		a.observeFailure("unavailable")
		a.logger.Warn().Err(err).Str("feed", feed.Describe()).Msg("price fetch failed")
		return domain.Reading{}, fmt.Errorf("%w: %v", domain.ErrOracleCompromised, err)
	}

	if err := reading.Validate(time.Now().UTC(), a.maxAge); err != nil {
		a.observeFailure(failureReason(err))
		a.logger.Warn().
			Err(err).
			Str("feed", feed.Describe()).
			Time("observed_at", reading.ObservedAt).
			Msg("price reading rejected")
		return domain.Reading{}, err
	}

	return reading, nil
}

func (a *Adapter) observeFailure(reason string) {
	if a.metrics != nil {
		a.metrics.OracleFailures.WithLabelValues(reason).Inc()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrStalePrice):
		return "stale"
	case errors.Is(err, domain.ErrOracleCompromised):
		return "compromised"
	default:
		return "unavailable"
	}
}
