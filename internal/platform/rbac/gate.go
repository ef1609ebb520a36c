// Package rbac implements the per-operation access gate. Every request that
// touches product-scoped data passes through Gate.Authorize before any
// business logic runs; nothing else resolves a product from a request.
package rbac

import (
	"context"

	membershipdomain "skald/backend/internal/membership/domain"
	"skald/backend/internal/platform/apperror"
	productdomain "skald/backend/internal/product/domain"
)

// Identity is the caller of the current request, supplied explicitly by the
// auth middleware. Superuser bypasses role checks, not product-activity checks.
type Identity struct {
	UserID    string
	Superuser bool
}

// Anonymous reports whether the identity is unauthenticated.
func (id Identity) Anonymous() bool { return id.UserID == "" }

// Role aliases the membership role so operations can declare allowed-role
// sets without importing the membership domain.
type Role = membershipdomain.Role

// ProductGetter resolves a product by id. nil result means not found.
type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*productdomain.Product, error)
}

// MembershipGetter returns a user's membership on a product. nil result means no membership.
type MembershipGetter interface {
	GetByUserAndProduct(ctx context.Context, userID, productID string) (*membershipdomain.Membership, error)
}

// Allowed-role sets for the operation table. An operation declares exactly one
// of these; the set is a static property of the operation, never of the
// resource instance.
var (
	// ReadRoles is every role; list and get operations.
	ReadRoles = []membershipdomain.Role{
		membershipdomain.RoleManager,
		membershipdomain.RoleContributor,
		membershipdomain.RoleViewer,
	}
	// EditRoles covers create, update, and delete on the knowledge tree.
	EditRoles = []membershipdomain.Role{
		membershipdomain.RoleManager,
		membershipdomain.RoleContributor,
	}
	// ManagerOnly covers membership administration and other sensitive operations.
	ManagerOnly = []membershipdomain.Role{
		membershipdomain.RoleManager,
	}
)

// Gate authorizes operations against a product. It is a pure read plus a
// decision: no caching across operations, since roles and product activity
// can change between calls.
type Gate struct {
	products    ProductGetter
	memberships MembershipGetter
}

// NewGate returns a Gate reading from the given product and membership stores.
func NewGate(products ProductGetter, memberships MembershipGetter) *Gate {
	return &Gate{products: products, memberships: memberships}
}

// Authorize resolves productID and checks that id may act on it with one of
// the allowed roles. Unknown and inactive products fail apperror.ErrNotFound
// for every caller, superusers included: deactivation revokes all access.
// Missing membership or an insufficient role fails apperror.ErrForbidden.
// On success the resolved product is returned for downstream scoping.
func (g *Gate) Authorize(ctx context.Context, id Identity, productID string, allowed ...membershipdomain.Role) (*productdomain.Product, error) {
	p, err := g.products.GetByID(ctx, productID)
	if err != nil {
		return nil, apperror.Integrity("rbac.Authorize", err)
	}
	if p == nil || !p.Active {
		return nil, apperror.ErrNotFound
	}

	if id.Superuser {
		return p, nil
	}
	if id.Anonymous() {
		return nil, apperror.ErrForbidden
	}

	m, err := g.memberships.GetByUserAndProduct(ctx, id.UserID, p.ID)
	if err != nil {
		return nil, apperror.Integrity("rbac.Authorize", err)
	}
	if m == nil {
		return nil, apperror.ErrForbidden
	}
	for _, role := range allowed {
		if m.Role == role {
			return p, nil
		}
	}
	return nil, apperror.ErrForbidden
}
