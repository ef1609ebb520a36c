package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skald/backend/internal/audit/domain"
	auditrepo "skald/backend/internal/audit/repository"
)

// Audit records an audit log entry after each mutating request addressed to a
// product. Reads are not audited. Create is best-effort: failures are logged
// and do not fail the request.
func Audit(repo auditrepo.Repository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				return
			}
			productID := chi.URLParam(r, "productID")
			if productID == "" {
				return
			}
			id, _ := GetIdentity(r.Context())

			entry := &domain.AuditLog{
				ID:        uuid.New().String(),
				ProductID: productID,
				UserID:    id.UserID,
				Action:    strings.ToLower(r.Method),
				Resource:  routePattern(r),
				IP:        ClientIP(r),
				CreatedAt: time.Now().UTC(),
			}
			// Detached context: the request's context may already be done.
			writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Create(writeCtx, entry); err != nil {
				logger.Warn("audit: failed to create audit log", zap.Error(err))
			}
		})
	}
}

// routePattern returns the chi route pattern (e.g. /products/{productID}/domains),
// falling back to the raw path when the route is unknown.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
