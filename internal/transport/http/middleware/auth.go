package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier matches the auth service's token contract.
type TokenVerifier interface {
	VerifyToken(token string) (domain.Identity, error)
}

func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`, http.StatusUnauthorized)
				return
			}

			ident, err := verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Invalid or expired token"}}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the verified identity from request context.
func GetIdentity(ctx context.Context) domain.Identity {
	return ctx.Value(identityKey).(domain.Identity)
}
