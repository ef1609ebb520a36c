package middleware

import (
	"net/http"
	"strings"

	"skald/backend/internal/platform/rbac"
	"skald/backend/internal/security"
)

const bearerPrefix = "bearer "

// Authenticator validates the Bearer (access) token from the Authorization
// header and sets the caller's identity in the request context. Requests
// without a valid token are rejected with 401; mount public routes outside
// this middleware instead of carrying a skip list.
func Authenticator(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
				return
			}
			userID, superuser, err := tokens.ValidateAccess(token)
			if err != nil {
				http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
				return
			}
			ctx := WithIdentity(r.Context(), rbac.Identity{UserID: userID, Superuser: superuser})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
