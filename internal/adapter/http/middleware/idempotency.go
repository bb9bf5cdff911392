package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/iho/tokenbank/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"

	// pendingMarker mirrors the placeholder the store writes while the
	// first request with a key is still settling.
	pendingMarker = "processing"
)

// IdempotencyMiddleware deduplicates mutating requests by their
// Idempotency-Key header. A replayed key returns the recorded response;
// a key whose first request is still in flight gets 409 rather than a
// second settlement run.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			if string(cached) == pendingMarker {
				http.Error(w, "request with this idempotency key is still in flight", http.StatusConflict)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replay", "true")
			w.Write(cached)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		switch {
		case recorder.statusCode >= 200 && recorder.statusCode < 300:
			_ = m.store.Update(r.Context(), key, recorder.body.Bytes(), m.ttl)
		case recorder.statusCode >= 400 && recorder.statusCode < 500:
			// A definite rejection changed nothing; release the key so
			// the caller may retry with it.
			_ = m.store.Delete(r.Context(), key)
		default:
			// A 5xx outcome may have partially settled. Keep the claim
			// so replays surface as conflicts until the key expires.
		}
	})
}

type responseRecorder struct {
	http.ResponseWriter

	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
