package repository

import (
	"context"

	"skald/backend/internal/product/domain"
)

// Repository defines persistence for products.
type Repository interface {
	// GetByID returns the product regardless of its active flag; callers that
	// gate on activity must check Active themselves.
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	// ListForUser returns active products the user holds a membership on,
	// ordered by name.
	ListForUser(ctx context.Context, userID string) ([]*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	SetActive(ctx context.Context, id string, active bool) (*domain.Product, error)
}
