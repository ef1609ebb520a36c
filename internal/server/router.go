// Package server assembles the HTTP router: middleware chain, public routes,
// and the authenticated feature routes.
package server

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	audithandler "skald/backend/internal/audit/handler"
	auditrepo "skald/backend/internal/audit/repository"
	authhandler "skald/backend/internal/auth/handler"
	authservice "skald/backend/internal/auth/service"
	healthhandler "skald/backend/internal/health/handler"
	knowledgehandler "skald/backend/internal/knowledge/handler"
	knowledgeservice "skald/backend/internal/knowledge/service"
	membershiphandler "skald/backend/internal/membership/handler"
	membershiprepo "skald/backend/internal/membership/repository"
	"skald/backend/internal/platform/rbac"
	producthandler "skald/backend/internal/product/handler"
	productrepo "skald/backend/internal/product/repository"
	"skald/backend/internal/security"
	"skald/backend/internal/server/middleware"
	userrepo "skald/backend/internal/user/repository"
)

// Deps holds the collaborators the router hands to feature handlers.
//
// Route → handler mapping:
//   - /auth/login                          → internal/auth/handler (public)
//   - /healthz                             → internal/health/handler (public)
//   - /products                            → internal/product/handler
//   - /products/{p}/members                → internal/membership/handler
//   - /products/{p}/domains/...            → internal/knowledge/handler
//   - /products/{p}/audit-logs             → internal/audit/handler
type Deps struct {
	Logger *zap.Logger
	Tracer trace.Tracer
	Tokens *security.TokenProvider
	Gate   *rbac.Gate

	Auth      *authservice.Service
	Knowledge *knowledgeservice.Service

	Users       userrepo.Repository
	Products    productrepo.Repository
	Memberships membershiprepo.Repository
	Audit       auditrepo.Repository

	// HealthPinger is used for readiness (e.g. *sql.DB). If nil, the health
	// check skips the database ping.
	HealthPinger healthhandler.Pinger
}

// NewRouter builds the chi router. Public routes sit outside the
// authenticator; everything else requires a valid access token, and mutating
// product-scoped requests are audited.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Tracer != nil {
		r.Use(middleware.Tracing(deps.Tracer))
	}

	// Public surface.
	healthhandler.NewHandler(deps.HealthPinger).Routes(r)
	authhandler.NewHandler(deps.Auth, deps.Logger).Routes(r)

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticator(deps.Tokens))
		r.Use(middleware.Audit(deps.Audit, deps.Logger))

		producthandler.NewHandler(deps.Gate, deps.Products, deps.Logger).Routes(r)
		membershiphandler.NewHandler(deps.Gate, deps.Memberships, deps.Users, deps.Logger).Routes(r)
		knowledgehandler.NewHandler(deps.Gate, deps.Knowledge, deps.Logger).Routes(r)
		audithandler.NewHandler(deps.Gate, deps.Audit, deps.Logger).Routes(r)
	})

	return r
}
