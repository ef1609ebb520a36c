package repository

import (
	"context"

	"skald/backend/internal/knowledge/domain"
)

// Repository defines persistence for the knowledge tree. Every read takes the
// parent id alongside the node id so that a node belonging to a different
// parent behaves exactly like a missing node. Writes that collide with a
// sibling name return domain.ErrDuplicateName; the uniqueness guarantee lives
// in the database constraint, which is what makes concurrent creates safe.
type Repository interface {
	GetDomain(ctx context.Context, productID, domainID string) (*domain.Domain, error)
	ListDomains(ctx context.Context, productID string) ([]*domain.Domain, error)
	CreateDomain(ctx context.Context, d *domain.Domain) error
	UpdateDomain(ctx context.Context, d *domain.Domain) (bool, error)
	// DeleteDomainTree removes the domain and all of its subdomains and their
	// capabilities in one transaction. Returns false if the domain is absent.
	DeleteDomainTree(ctx context.Context, domainID string) (bool, error)

	GetSubDomain(ctx context.Context, domainID, subdomainID string) (*domain.SubDomain, error)
	ListSubDomains(ctx context.Context, domainID string) ([]*domain.SubDomain, error)
	CreateSubDomain(ctx context.Context, sd *domain.SubDomain) error
	UpdateSubDomain(ctx context.Context, sd *domain.SubDomain) (bool, error)
	DeleteSubDomainTree(ctx context.Context, subdomainID string) (bool, error)

	GetCapability(ctx context.Context, subdomainID, capabilityID string) (*domain.Capability, error)
	ListCapabilities(ctx context.Context, subdomainID string) ([]*domain.Capability, error)
	CreateCapability(ctx context.Context, c *domain.Capability) error
	UpdateCapability(ctx context.Context, c *domain.Capability) (bool, error)
	DeleteCapability(ctx context.Context, capabilityID string) (bool, error)
}
