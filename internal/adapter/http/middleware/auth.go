package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/auth"
)

// Authenticate verifies the Bearer token and attaches the caller to the
// request context. The token subject doubles as the account identifier.
func Authenticate(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Verify(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := domain.ContextWithUser(r.Context(), claims.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevAuthenticate identifies callers by the X-Account-ID header and grants
// the admin role. Only for local runs with authentication disabled.
func DevAuthenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := r.Header.Get("X-Account-ID")
			if accountID == "" {
				accountID = "dev"
			}

			user := &domain.User{ID: accountID, Role: domain.RoleAdmin}
			ctx := domain.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole refuses callers whose role grants less than minRole.
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := domain.UserFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			allowed := true
			switch minRole {
			case domain.RoleAdmin:
				allowed = user.Role.CanAdminister()
			case domain.RoleOperator:
				allowed = user.Role.CanSubmitReceipts()
			case domain.RoleViewer:
				// Any authenticated caller.
			}
			if !allowed {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
