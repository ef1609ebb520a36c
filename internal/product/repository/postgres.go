package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"skald/backend/internal/product/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a product repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `id, name, description, is_active, created_at, updated_at`

// GetByID returns the product for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// ListAll returns every product, active or not, ordered by name.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ListForUser returns active products the user holds a membership on, ordered by name.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.is_active, p.created_at, p.updated_at
		FROM products p
		JOIN product_memberships m ON m.product_id = p.id
		WHERE m.user_id = $1 AND p.is_active
		ORDER BY p.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Create persists the product. The product must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Description, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// SetActive flips the active flag and returns the updated product, or nil if the id is unknown.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products SET is_active = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+productColumns,
		id, active, time.Now().UTC(),
	)
	return scanProduct(row)
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	var out []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
