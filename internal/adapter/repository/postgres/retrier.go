package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// Server-side codes that mean the statement lost a lock race and the
// whole query can be replayed.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// Retrier re-runs read queries that lost to a concurrent transition's
// lock, with exponential backoff. Mutating transitions never go through
// here; their transaction either commits once or fails outright.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	logger          *slog.Logger
}

// NewRetrier returns a Retrier tuned for short lock conflicts: a few
// quick replays, giving up within seconds.
func NewRetrier() *Retrier {
	return &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  10 * time.Second,
		logger:          slog.Default(),
	}
}

// Retry runs op, replaying it on deadlock or serialization failure until
// it succeeds or the retry budget is spent. Any other error aborts the
// loop and comes back unwrapped, so callers can errors.Is against domain
// sentinels.
func (r *Retrier) Retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval
	bo.MaxInterval = r.maxInterval
	bo.MaxElapsedTime = r.maxElapsedTime

	attempt := func() error {
		err := op()
		switch {
		case err == nil:
			return nil
		case isRetryableError(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	onRetry := func(err error, wait time.Duration) {
		r.logger.Warn("query lost a lock race, replaying",
			"error", err,
			"wait", wait,
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.maxRetries)), ctx)
	return backoff.RetryNotify(attempt, policy, onRetry)
}

// isRetryableError reports whether err is a deadlock or serialization
// failure. Translated domain sentinels and plain query errors are not.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgErrDeadlock || pgErr.Code == pgErrSerializationFailure
}
