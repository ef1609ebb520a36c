package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skald/backend/internal/auth/service"
	"skald/backend/internal/server/httpx"
)

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the public auth routes; no authentication middleware applies.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Superuser bool      `json:"superuser"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	sess, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.Unauthorized(w)
			return
		}
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginView{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    sess.User.ID,
		Superuser: sess.User.Superuser,
	})
}
