package domain

import (
	"errors"
	"time"
)

// User is an account that can authenticate and hold product memberships.
// Superuser marks the platform administrator; it bypasses per-product role
// checks but not product-activity checks.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Superuser    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
