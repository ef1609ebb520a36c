// Package handler exposes the knowledge tree over nested HTTP routes. Each
// operation declares its allowed-role set where it authorizes, and builds the
// full addressing chain through the service before touching anything.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skald/backend/internal/knowledge/domain"
	"skald/backend/internal/knowledge/service"
	"skald/backend/internal/platform/rbac"
	productdomain "skald/backend/internal/product/domain"
	"skald/backend/internal/server/httpx"
	"skald/backend/internal/server/middleware"
)

type Handler struct {
	gate   *rbac.Gate
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler returns a knowledge handler using the given gate and service.
func NewHandler(gate *rbac.Gate, svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{gate: gate, svc: svc, logger: logger}
}

// Routes mounts the nested knowledge routes. Callers mount this inside the
// authenticated part of the router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/products/{productID}/domains", func(r chi.Router) {
		r.Get("/", h.ListDomains)
		r.Post("/", h.CreateDomain)
		r.Route("/{domainID}", func(r chi.Router) {
			r.Get("/", h.GetDomain)
			r.Put("/", h.UpdateDomain)
			r.Delete("/", h.DeleteDomain)
			r.Route("/subdomains", func(r chi.Router) {
				r.Get("/", h.ListSubDomains)
				r.Post("/", h.CreateSubDomain)
				r.Route("/{subdomainID}", func(r chi.Router) {
					r.Get("/", h.GetSubDomain)
					r.Put("/", h.UpdateSubDomain)
					r.Delete("/", h.DeleteSubDomain)
					r.Route("/capabilities", func(r chi.Router) {
						r.Get("/", h.ListCapabilities)
						r.Post("/", h.CreateCapability)
						r.Route("/{capabilityID}", func(r chi.Router) {
							r.Get("/", h.GetCapability)
							r.Put("/", h.UpdateCapability)
							r.Delete("/", h.DeleteCapability)
						})
					})
				})
			})
		})
	})
}

// nodeInput is the create/update request body for every tree level. The
// parent is taken from the URL and is never an input field.
type nodeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// nodeView is the JSON shape of a tree node at every level.
type nodeView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// authorize gates the request and returns the resolved product.
// The allowed-role set is the operation's own declaration.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, allowed []rbac.Role) (*productdomain.Product, bool) {
	id, _ := middleware.GetIdentity(r.Context())
	product, err := h.gate.Authorize(r.Context(), id, chi.URLParam(r, "productID"), allowed...)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return nil, false
	}
	return product, true
}

// --- Domains ---

func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.ReadRoles)
	if !ok {
		return
	}
	domains, err := h.svc.ListDomains(r.Context(), product)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, domainViews(domains))
}

func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.ReadRoles)
	if !ok {
		return
	}
	d, err := h.svc.ResolveDomain(r.Context(), product, chi.URLParam(r, "domainID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, domainView(d))
}

func (h *Handler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	var in nodeInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	d, err := h.svc.CreateDomain(r.Context(), product, in.Name, in.Description)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, domainView(d))
}

func (h *Handler) UpdateDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	var in nodeInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	d, err := h.svc.UpdateDomain(r.Context(), product, chi.URLParam(r, "domainID"), in.Name, in.Description)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, domainView(d))
}

func (h *Handler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	if err := h.svc.DeleteDomain(r.Context(), product, chi.URLParam(r, "domainID")); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}

// --- SubDomains ---

// resolveDomain walks the first link of the addressing chain.
func (h *Handler) resolveDomain(w http.ResponseWriter, r *http.Request, product *productdomain.Product) (*domain.Domain, bool) {
	d, err := h.svc.ResolveDomain(r.Context(), product, chi.URLParam(r, "domainID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) ListSubDomains(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.ReadRoles)
	if !ok {
		return
	}
	d, ok := h.resolveDomain(w, r, product)
	if !ok {
		return
	}
	subdomains, err := h.svc.ListSubDomains(r.Context(), d)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subdomainViews(subdomains))
}

func (h *Handler) GetSubDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.ReadRoles)
	if !ok {
		return
	}
	d, ok := h.resolveDomain(w, r, product)
	if !ok {
		return
	}
	sd, err := h.svc.ResolveSubDomain(r.Context(), d, chi.URLParam(r, "subdomainID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subdomainView(sd))
}

func (h *Handler) CreateSubDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	d, ok := h.resolveDomain(w, r, product)
	if !ok {
		return
	}
	var in nodeInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	sd, err := h.svc.CreateSubDomain(r.Context(), d, in.Name, in.Description)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, subdomainView(sd))
}

func (h *Handler) UpdateSubDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	d, ok := h.resolveDomain(w, r, product)
	if !ok {
		return
	}
	var in nodeInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	sd, err := h.svc.UpdateSubDomain(r.Context(), d, chi.URLParam(r, "subdomainID"), in.Name, in.Description)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subdomainView(sd))
}

func (h *Handler) DeleteSubDomain(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	d, ok := h.resolveDomain(w, r, product)
	if !ok {
		return
	}
	if err := h.svc.DeleteSubDomain(r.Context(), d, chi.URLParam(r, "subdomainID")); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}

// --- Capabilities ---

// resolveSubDomain walks the first two links of the addressing chain.
func (h *Handler) resolveSubDomain(w http.ResponseWriter, r *http.Request, product *productdomain.Product) (*domain.SubDomain, bool) {
	d, ok := h.resolveDomain(w, r, product)
	if !ok {
		return nil, false
	}
	sd, err := h.svc.ResolveSubDomain(r.Context(), d, chi.URLParam(r, "subdomainID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return nil, false
	}
	return sd, true
}

func (h *Handler) ListCapabilities(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.ReadRoles)
	if !ok {
		return
	}
	sd, ok := h.resolveSubDomain(w, r, product)
	if !ok {
		return
	}
	capabilities, err := h.svc.ListCapabilities(r.Context(), sd)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, capabilityViews(capabilities))
}

func (h *Handler) GetCapability(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.ReadRoles)
	if !ok {
		return
	}
	sd, ok := h.resolveSubDomain(w, r, product)
	if !ok {
		return
	}
	c, err := h.svc.ResolveCapability(r.Context(), sd, chi.URLParam(r, "capabilityID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, capabilityView(c))
}

func (h *Handler) CreateCapability(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	sd, ok := h.resolveSubDomain(w, r, product)
	if !ok {
		return
	}
	var in nodeInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	c, err := h.svc.CreateCapability(r.Context(), sd, in.Name, in.Description)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, capabilityView(c))
}

func (h *Handler) UpdateCapability(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	sd, ok := h.resolveSubDomain(w, r, product)
	if !ok {
		return
	}
	var in nodeInput
	if !httpx.Decode(w, r, &in) {
		return
	}
	c, err := h.svc.UpdateCapability(r.Context(), sd, chi.URLParam(r, "capabilityID"), in.Name, in.Description)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, capabilityView(c))
}

func (h *Handler) DeleteCapability(w http.ResponseWriter, r *http.Request) {
	product, ok := h.authorize(w, r, rbac.EditRoles)
	if !ok {
		return
	}
	sd, ok := h.resolveSubDomain(w, r, product)
	if !ok {
		return
	}
	if err := h.svc.DeleteCapability(r.Context(), sd, chi.URLParam(r, "capabilityID")); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}

// --- views ---

func domainView(d *domain.Domain) nodeView {
	return nodeView{ID: d.ID, Name: d.Name, Description: d.Description, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

func domainViews(in []*domain.Domain) []nodeView {
	out := make([]nodeView, len(in))
	for i, d := range in {
		out[i] = domainView(d)
	}
	return out
}

func subdomainView(sd *domain.SubDomain) nodeView {
	return nodeView{ID: sd.ID, Name: sd.Name, Description: sd.Description, CreatedAt: sd.CreatedAt, UpdatedAt: sd.UpdatedAt}
}

func subdomainViews(in []*domain.SubDomain) []nodeView {
	out := make([]nodeView, len(in))
	for i, sd := range in {
		out[i] = subdomainView(sd)
	}
	return out
}

func capabilityView(c *domain.Capability) nodeView {
	return nodeView{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func capabilityViews(in []*domain.Capability) []nodeView {
	out := make([]nodeView, len(in))
	for i, c := range in {
		out[i] = capabilityView(c)
	}
	return out
}
