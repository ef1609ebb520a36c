// Package handler exposes readiness for Kubernetes, load balancers, and CI.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skald/backend/internal/server/httpx"
)

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db Pinger
}

// NewHandler returns a health handler. A nil pinger skips the database check.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// Routes mounts the public health route; no authentication applies.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Check)
}

type healthView struct {
	Status string `json:"status"`
}

// Check returns 200 "serving" when every dependency answers, 503 otherwise.
// Dependency failures are reported in the status, never as request errors.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, healthView{Status: "not_serving"})
			return
		}
	}
	httpx.JSON(w, http.StatusOK, healthView{Status: "serving"})
}
