// Package handler exposes product management. Lifecycle operations are
// reserved for the platform superuser and work on inactive products too, so
// they read the store directly instead of going through the access gate.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skald/backend/internal/platform/apperror"
	"skald/backend/internal/platform/rbac"
	"skald/backend/internal/product/domain"
	"skald/backend/internal/product/repository"
	"skald/backend/internal/server/httpx"
	"skald/backend/internal/server/middleware"
)

type Handler struct {
	gate   *rbac.Gate
	repo   repository.Repository
	logger *zap.Logger
}

// NewHandler returns a product handler using the given gate and repository.
func NewHandler(gate *rbac.Gate, repo repository.Repository, logger *zap.Logger) *Handler {
	return &Handler{gate: gate, repo: repo, logger: logger}
}

// Routes mounts the product routes inside the authenticated router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/deactivate", h.Deactivate)
			r.Post("/activate", h.Activate)
		})
	})
}

type productInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type productView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List returns the products visible to the caller: everything for a
// superuser, membership products otherwise.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	var (
		products []*domain.Product
		err      error
	)
	if id.Superuser {
		products, err = h.repo.ListAll(r.Context())
	} else {
		products, err = h.repo.ListForUser(r.Context(), id.UserID)
	}
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("product.List", err))
		return
	}
	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = view(p)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get returns one product; membership at any role is enough.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	p, err := h.gate.Authorize(r.Context(), id, chi.URLParam(r, "productID"), rbac.ReadRoles...)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view(p))
}

// Create creates a product. Superuser only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	if !id.Superuser {
		httpx.Error(w, h.logger, apperror.ErrForbidden)
		return
	}
	var in productInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	now := time.Now().UTC()
	p := &domain.Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		httpx.Error(w, h.logger, apperror.NewValidation("name", err.Error()))
		return
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("product.Create", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, view(p))
}

// Deactivate makes the product invisible to every caller. Superuser only;
// products are never hard-deleted.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate restores a deactivated product. Superuser only.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, _ := middleware.GetIdentity(r.Context())
	if !id.Superuser {
		httpx.Error(w, h.logger, apperror.ErrForbidden)
		return
	}
	p, err := h.repo.SetActive(r.Context(), chi.URLParam(r, "productID"), active)
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("product.SetActive", err))
		return
	}
	if p == nil {
		httpx.Error(w, h.logger, apperror.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, view(p))
}

func view(p *domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
