package repository

import (
	"context"

	"skald/backend/internal/membership/domain"
)

// Repository defines persistence for product memberships.
type Repository interface {
	GetByUserAndProduct(ctx context.Context, userID, productID string) (*domain.Membership, error)
	ListByProduct(ctx context.Context, productID string) ([]*domain.Membership, error)
	// Upsert inserts the membership or, when the (user, product) pair already
	// exists, replaces its role in place. The uniqueness of the pair is a
	// database constraint, not an application check.
	Upsert(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	DeleteByUserAndProduct(ctx context.Context, userID, productID string) (bool, error)
}
