// Package handler exposes the membership roster of a product. Every route
// requires the caller to be a manager of the product or a superuser.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skald/backend/internal/membership/domain"
	"skald/backend/internal/membership/repository"
	"skald/backend/internal/platform/apperror"
	"skald/backend/internal/platform/rbac"
	"skald/backend/internal/server/httpx"
	"skald/backend/internal/server/middleware"
	userrepository "skald/backend/internal/user/repository"
)

type Handler struct {
	gate   *rbac.Gate
	repo   repository.Repository
	users  userrepository.Repository
	logger *zap.Logger
}

func NewHandler(gate *rbac.Gate, repo repository.Repository, users userrepository.Repository, logger *zap.Logger) *Handler {
	return &Handler{gate: gate, repo: repo, users: users, logger: logger}
}

// Routes mounts the roster routes inside the authenticated router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/products/{productID}/members", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Assign)
		r.Put("/{userID}", h.AssignUser)
		r.Delete("/{userID}", h.Remove)
	})
}

type assignInput struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type memberView struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	members, err := h.repo.ListByProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("membership.List", err))
		return
	}
	out := make([]memberView, len(members))
	for i, m := range members {
		out[i] = view(m)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Assign grants a role from the request body. Assigning a role the user
// already holds on the product replaces it in place rather than conflicting.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	var in assignInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	h.upsert(w, r, in.UserID, in.Role)
}

// AssignUser is the PUT form of Assign with the user in the path.
func (h *Handler) AssignUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	var in assignInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	h.upsert(w, r, chi.URLParam(r, "userID"), in.Role)
}

// upsert runs after the caller has passed the gate.
func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, userID, role string) {
	if userID == "" {
		httpx.Error(w, h.logger, apperror.NewValidation("user_id", "is required"))
		return
	}
	if !domain.Role(role).Valid() {
		httpx.Error(w, h.logger, apperror.NewValidation("role", "must be manager, contributor or viewer"))
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("membership.Assign", err))
		return
	}
	if u == nil {
		httpx.Error(w, h.logger, apperror.NewValidation("user_id", "unknown user"))
		return
	}
	m := &domain.Membership{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: chi.URLParam(r, "productID"),
		Role:      domain.Role(role),
		CreatedAt: time.Now().UTC(),
	}
	saved, err := h.repo.Upsert(r.Context(), m)
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("membership.Upsert", err))
		return
	}
	httpx.JSON(w, http.StatusOK, view(saved))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	ok, err := h.repo.DeleteByUserAndProduct(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("membership.Remove", err))
		return
	}
	if !ok {
		httpx.Error(w, h.logger, apperror.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	id, _ := middleware.GetIdentity(r.Context())
	if _, err := h.gate.Authorize(r.Context(), id, chi.URLParam(r, "productID"), rbac.ManagerOnly...); err != nil {
		httpx.Error(w, h.logger, err)
		return false
	}
	return true
}

func view(m *domain.Membership) memberView {
	return memberView{
		UserID:    m.UserID,
		ProductID: m.ProductID,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}
