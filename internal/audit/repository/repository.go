package repository

import (
	"context"

	"skald/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]*domain.AuditLog, error)
}
