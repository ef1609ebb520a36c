package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skald/backend/internal/audit/domain"
	"skald/backend/internal/audit/repository"
	"skald/backend/internal/platform/apperror"
	"skald/backend/internal/platform/rbac"
	"skald/backend/internal/server/httpx"
	"skald/backend/internal/server/middleware"
)

type Handler struct {
	gate   *rbac.Gate
	repo   repository.Repository
	logger *zap.Logger
}

func NewHandler(gate *rbac.Gate, repo repository.Repository, logger *zap.Logger) *Handler {
	return &Handler{gate: gate, repo: repo, logger: logger}
}

// Routes mounts the audit log routes inside the authenticated router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products/{productID}/audit-logs", h.List)
}

type entryView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the product's audit trail, newest first. Managers only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	productID := chi.URLParam(r, "productID")
	if _, err := h.gate.Authorize(r.Context(), id, productID, rbac.ManagerOnly...); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httpx.Error(w, h.logger, apperror.NewValidation("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := h.repo.ListByProduct(r.Context(), productID, limit)
	if err != nil {
		httpx.Error(w, h.logger, apperror.Integrity("audit.List", err))
		return
	}
	out := make([]entryView, len(entries))
	for i, e := range entries {
		out[i] = view(e)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func view(e *domain.AuditLog) entryView {
	return entryView{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		Resource:  e.Resource,
		IP:        e.IP,
		CreatedAt: e.CreatedAt,
	}
}
