package domain

import (
	"time"
)

// Membership links a user to a product with a role. A user holds at most one
// role per product; assigning again replaces the role in place.
type Membership struct {
	ID        string
	UserID    string
	ProductID string
	Role      Role
	CreatedAt time.Time
}

// Role determines the set of operations a member may invoke on a product.
type Role string

const (
	RoleManager     Role = "manager"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleContributor, RoleViewer:
		return true
	}
	return false
}
