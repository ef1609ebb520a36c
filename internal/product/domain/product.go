package domain

import (
	"errors"
	"time"
)

// Product is the tenant boundary. All knowledge data is scoped to exactly one
// product. Products are deactivated rather than deleted; deactivation revokes
// all access, superusers included.
type Product struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the product for persistence. Returns an error describing the first validation failure.
func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
