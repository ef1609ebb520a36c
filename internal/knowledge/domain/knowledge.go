// Package domain holds the knowledge tree node types. The tree has three
// levels below a product: Domain › SubDomain › Capability. A node's parent is
// set at creation and never reassigned; names are unique among siblings only.
package domain

import (
	"errors"
	"time"
)

// ErrDuplicateName is reported by the repository when an insert or rename
// collides with a sibling's name. The service layer converts it into a
// field-attributed validation error.
var ErrDuplicateName = errors.New("duplicate name in parent scope")

const maxNameLen = 255

// Domain is a top-level area of concern within a product.
type Domain struct {
	ID          string
	ProductID   string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubDomain is a nested area within a domain.
type SubDomain struct {
	ID          string
	DomainID    string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Capability is a verb-like action the system supports, attached to a subdomain.
type Capability struct {
	ID          string
	SubDomainID string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateName checks a node name for persistence.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > maxNameLen {
		return errors.New("name is too long")
	}
	return nil
}
