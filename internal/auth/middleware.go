package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/platform/httpx"
)

const bearerPrefix = "Bearer "

// RequireAuth resolves the bearer token to a principal and attaches it to the
// request context. Requests without a valid token get 401.
func RequireAuth(tokens *TokenStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			principal, err := tokens.Resolve(r.Context(), strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				if logger != nil && !errors.Is(err, ErrTokenInvalid) {
					logger.Warn("token resolution failed", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			if !principal.Active {
				httpx.Forbidden(w, "account disabled")
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// TokenFromRequest extracts the raw bearer token, empty when absent.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, bearerPrefix)
}
