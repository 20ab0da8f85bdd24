package auth

import (
	"context"
	"net/http"

	"herald/service/util"
)

type contextKey string

const userKey contextKey = "user"

// Middleware rejects requests without a valid bearer token before any
// handler logic runs. Session cookies are deliberately not honored; admin
// routes require the Authorization header.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := util.BearerToken(r)
			if token == "" {
				util.WriteJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "missing or invalid authorization header",
				})
				return
			}

			user, err := verifier.VerifyToken(token)
			if err != nil {
				util.WriteJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "invalid or expired token",
				})
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the verified user for the current request, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok
}
