package repository

import (
	"context"
	"database/sql"
	"errors"

	"skald/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = `id, user_id, product_id, role, created_at`

// GetByUserAndProduct returns the membership for the given user and product, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndProduct(ctx context.Context, userID, productID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM product_memberships
		WHERE user_id = $1 AND product_id = $2`, userID, productID)
	return scanMembership(row)
}

// ListByProduct returns all memberships for the given product, newest first.
func (r *PostgresRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM product_memberships
		WHERE product_id = $1
		ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProductID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Upsert inserts the membership or replaces the role on conflict of the
// (user, product) pair. Returns the stored row.
func (r *PostgresRepository) Upsert(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO product_memberships (id, user_id, product_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT uq_product_memberships_user_product
		DO UPDATE SET role = EXCLUDED.role
		RETURNING `+membershipColumns,
		m.ID, m.UserID, m.ProductID, m.Role, m.CreatedAt,
	)
	return scanMembership(row)
}

// DeleteByUserAndProduct removes the membership. Returns true if a row was deleted.
func (r *PostgresRepository) DeleteByUserAndProduct(ctx context.Context, userID, productID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM product_memberships WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanMembership(row *sql.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.ProductID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
