package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggingMiddlewareLevelsByStatus(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		level  string
	}{
		{"success logs info", http.StatusOK, "info"},
		{"rejection logs warn", http.StatusUnprocessableEntity, "warn"},
		{"failure logs error", http.StatusBadGateway, "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out strings.Builder
			logger := zerolog.New(&out)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte("body"))
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/capacity", nil)
			rr := httptest.NewRecorder()
			NewLoggingMiddleware(logger).Wrap(next).ServeHTTP(rr, req)

			var entry map[string]any
			if err := json.Unmarshal([]byte(out.String()), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v", err)
			}
			if entry["level"] != tc.level {
				t.Fatalf("expected level %q, got %v", tc.level, entry["level"])
			}
			if entry["status"] != float64(tc.status) {
				t.Fatalf("expected status %d, got %v", tc.status, entry["status"])
			}
			if entry["bytes"] != float64(len("body")) {
				t.Fatalf("expected body size in log line, got %v", entry["bytes"])
			}
			if entry["path"] != "/api/v1/capacity" {
				t.Fatalf("expected path in log line, got %v", entry["path"])
			}
		})
	}
}
