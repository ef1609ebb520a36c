// Package service is the write path for the knowledge tree. It chains parent
// resolution so an operation addressed through a mismatched chain is rejected
// at the first broken link, validates input, and converts the storage layer's
// uniqueness violations into field-attributed validation errors.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"skald/backend/internal/knowledge/domain"
	"skald/backend/internal/knowledge/repository"
	"skald/backend/internal/platform/apperror"
	productdomain "skald/backend/internal/product/domain"
)

type Service struct {
	repo repository.Repository
}

// NewService returns a Service writing through the given repository.
func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// duplicateName is the conversion applied to every create/update: the unique
// constraint is the concurrency mechanism, and its violation is a client
// error on the name field, never a generic failure.
func duplicateName(op string, err error) error {
	if errors.Is(err, domain.ErrDuplicateName) {
		return apperror.NewValidation("name", "already exists in this scope")
	}
	return apperror.Integrity(op, err)
}

// --- Domains ---

// ResolveDomain returns the domain addressed under product, or
// apperror.ErrNotFound — including when the id exists under another product.
func (s *Service) ResolveDomain(ctx context.Context, product *productdomain.Product, domainID string) (*domain.Domain, error) {
	d, err := s.repo.GetDomain(ctx, product.ID, domainID)
	if err != nil {
		return nil, apperror.Integrity("knowledge.ResolveDomain", err)
	}
	if d == nil {
		return nil, apperror.ErrNotFound
	}
	return d, nil
}

// ListDomains returns the product's domains ordered by name.
func (s *Service) ListDomains(ctx context.Context, product *productdomain.Product) ([]*domain.Domain, error) {
	out, err := s.repo.ListDomains(ctx, product.ID)
	if err != nil {
		return nil, apperror.Integrity("knowledge.ListDomains", err)
	}
	return out, nil
}

// CreateDomain creates a domain under product.
func (s *Service) CreateDomain(ctx context.Context, product *productdomain.Product, name, description string) (*domain.Domain, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, apperror.NewValidation("name", err.Error())
	}
	now := time.Now().UTC()
	d := &domain.Domain{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDomain(ctx, d); err != nil {
		return nil, duplicateName("knowledge.CreateDomain", err)
	}
	return d, nil
}

// UpdateDomain renames or redescribes the addressed domain. The parent link
// is immutable and not an input.
func (s *Service) UpdateDomain(ctx context.Context, product *productdomain.Product, domainID, name, description string) (*domain.Domain, error) {
	d, err := s.ResolveDomain(ctx, product, domainID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, apperror.NewValidation("name", err.Error())
	}
	d.Name = name
	d.Description = description
	ok, err := s.repo.UpdateDomain(ctx, d)
	if err != nil {
		return nil, duplicateName("knowledge.UpdateDomain", err)
	}
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return d, nil
}

// DeleteDomain removes the addressed domain and its whole subtree atomically.
func (s *Service) DeleteDomain(ctx context.Context, product *productdomain.Product, domainID string) error {
	d, err := s.ResolveDomain(ctx, product, domainID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteDomainTree(ctx, d.ID)
	if err != nil {
		return apperror.Integrity("knowledge.DeleteDomain", err)
	}
	if !ok {
		return apperror.ErrNotFound
	}
	return nil
}

// --- SubDomains ---

// ResolveSubDomain returns the subdomain addressed under parent, or
// apperror.ErrNotFound when absent or attached to a different domain.
func (s *Service) ResolveSubDomain(ctx context.Context, parent *domain.Domain, subdomainID string) (*domain.SubDomain, error) {
	sd, err := s.repo.GetSubDomain(ctx, parent.ID, subdomainID)
	if err != nil {
		return nil, apperror.Integrity("knowledge.ResolveSubDomain", err)
	}
	if sd == nil {
		return nil, apperror.ErrNotFound
	}
	return sd, nil
}

// ListSubDomains returns the domain's subdomains ordered by name.
func (s *Service) ListSubDomains(ctx context.Context, parent *domain.Domain) ([]*domain.SubDomain, error) {
	out, err := s.repo.ListSubDomains(ctx, parent.ID)
	if err != nil {
		return nil, apperror.Integrity("knowledge.ListSubDomains", err)
	}
	return out, nil
}

// CreateSubDomain creates a subdomain under parent.
func (s *Service) CreateSubDomain(ctx context.Context, parent *domain.Domain, name, description string) (*domain.SubDomain, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, apperror.NewValidation("name", err.Error())
	}
	now := time.Now().UTC()
	sd := &domain.SubDomain{
		ID:          uuid.New().String(),
		DomainID:    parent.ID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateSubDomain(ctx, sd); err != nil {
		return nil, duplicateName("knowledge.CreateSubDomain", err)
	}
	return sd, nil
}

// UpdateSubDomain renames or redescribes the addressed subdomain.
func (s *Service) UpdateSubDomain(ctx context.Context, parent *domain.Domain, subdomainID, name, description string) (*domain.SubDomain, error) {
	sd, err := s.ResolveSubDomain(ctx, parent, subdomainID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, apperror.NewValidation("name", err.Error())
	}
	sd.Name = name
	sd.Description = description
	ok, err := s.repo.UpdateSubDomain(ctx, sd)
	if err != nil {
		return nil, duplicateName("knowledge.UpdateSubDomain", err)
	}
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return sd, nil
}

// DeleteSubDomain removes the addressed subdomain and its capabilities atomically.
func (s *Service) DeleteSubDomain(ctx context.Context, parent *domain.Domain, subdomainID string) error {
	sd, err := s.ResolveSubDomain(ctx, parent, subdomainID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteSubDomainTree(ctx, sd.ID)
	if err != nil {
		return apperror.Integrity("knowledge.DeleteSubDomain", err)
	}
	if !ok {
		return apperror.ErrNotFound
	}
	return nil
}

// --- Capabilities ---

// ResolveCapability returns the capability addressed under parent, or
// apperror.ErrNotFound when absent or attached to a different subdomain.
func (s *Service) ResolveCapability(ctx context.Context, parent *domain.SubDomain, capabilityID string) (*domain.Capability, error) {
	c, err := s.repo.GetCapability(ctx, parent.ID, capabilityID)
	if err != nil {
		return nil, apperror.Integrity("knowledge.ResolveCapability", err)
	}
	if c == nil {
		return nil, apperror.ErrNotFound
	}
	return c, nil
}

// ListCapabilities returns the subdomain's capabilities ordered by name.
func (s *Service) ListCapabilities(ctx context.Context, parent *domain.SubDomain) ([]*domain.Capability, error) {
	out, err := s.repo.ListCapabilities(ctx, parent.ID)
	if err != nil {
		return nil, apperror.Integrity("knowledge.ListCapabilities", err)
	}
	return out, nil
}

// CreateCapability creates a capability under parent.
func (s *Service) CreateCapability(ctx context.Context, parent *domain.SubDomain, name, description string) (*domain.Capability, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, apperror.NewValidation("name", err.Error())
	}
	now := time.Now().UTC()
	c := &domain.Capability{
		ID:          uuid.New().String(),
		SubDomainID: parent.ID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCapability(ctx, c); err != nil {
		return nil, duplicateName("knowledge.CreateCapability", err)
	}
	return c, nil
}

// UpdateCapability renames or redescribes the addressed capability.
func (s *Service) UpdateCapability(ctx context.Context, parent *domain.SubDomain, capabilityID, name, description string) (*domain.Capability, error) {
	c, err := s.ResolveCapability(ctx, parent, capabilityID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, apperror.NewValidation("name", err.Error())
	}
	c.Name = name
	c.Description = description
	ok, err := s.repo.UpdateCapability(ctx, c)
	if err != nil {
		return nil, duplicateName("knowledge.UpdateCapability", err)
	}
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return c, nil
}

// DeleteCapability removes the addressed capability.
func (s *Service) DeleteCapability(ctx context.Context, parent *domain.SubDomain, capabilityID string) error {
	c, err := s.ResolveCapability(ctx, parent, capabilityID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteCapability(ctx, c.ID)
	if err != nil {
		return apperror.Integrity("knowledge.DeleteCapability", err)
	}
	if !ok {
		return apperror.ErrNotFound
	}
	return nil
}
