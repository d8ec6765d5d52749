package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"formgate/pkg/requestcontext"
)

// Claims are the validated identity of an admin API caller.
type Claims struct {
	AccountID int64
	Role      string
}

// TokenValidator validates bearer tokens for the admin surface.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

type claimsKey struct{}

// GetClaims retrieves the authenticated claims from the context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// WithClaims injects claims into a context, for handler tests that skip
// the middleware chain.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// validated claims in the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized admin request",
					"error", err.Error(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
