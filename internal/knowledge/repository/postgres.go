package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"skald/backend/internal/knowledge/domain"
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a knowledge repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// asDuplicate converts a unique-violation into domain.ErrDuplicateName and
// passes every other error through. This is the race-loser conversion: two
// concurrent inserts for the same (parent, name) both reach the database, the
// constraint admits one, and the loser surfaces here.
func asDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrDuplicateName
	}
	return err
}

// --- Domains ---

const domainColumns = `id, product_id, name, description, created_at, updated_at`

// GetDomain returns the domain only if it belongs to productID; a domain id
// under another product scans as a missing row. Returns nil if not found.
func (r *PostgresRepository) GetDomain(ctx context.Context, productID, domainID string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+domainColumns+` FROM domains
		WHERE id = $1 AND product_id = $2`, domainID, productID)
	var d domain.Domain
	err := row.Scan(&d.ID, &d.ProductID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ListDomains returns the product's domains ordered by name.
func (r *PostgresRepository) ListDomains(ctx context.Context, productID string) ([]*domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+domainColumns+` FROM domains
		WHERE product_id = $1
		ORDER BY name ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Domain
	for rows.Next() {
		var d domain.Domain
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// CreateDomain inserts the domain. Returns domain.ErrDuplicateName when the
// (product, name) pair is taken.
func (r *PostgresRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO domains (id, product_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.ProductID, d.Name, d.Description, d.CreatedAt, d.UpdatedAt,
	)
	return asDuplicate(err)
}

// UpdateDomain writes name and description. The parent link is not an update
// field. Returns false if the row is absent; domain.ErrDuplicateName on a
// sibling name collision.
func (r *PostgresRepository) UpdateDomain(ctx context.Context, d *domain.Domain) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE domains SET name = $2, description = $3, updated_at = $4
		WHERE id = $1`,
		d.ID, d.Name, d.Description, time.Now().UTC(),
	)
	if err != nil {
		return false, asDuplicate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteDomainTree removes the domain's capabilities, subdomains, and the
// domain itself in one transaction, child tables first. The hierarchy FKs are
// RESTRICT, so a partial cascade cannot commit.
func (r *PostgresRepository) DeleteDomainTree(ctx context.Context, domainID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM capabilities
		WHERE subdomain_id IN (SELECT id FROM subdomains WHERE domain_id = $1)`, domainID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM subdomains WHERE domain_id = $1`, domainID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, domainID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- SubDomains ---

const subdomainColumns = `id, domain_id, name, description, created_at, updated_at`

// GetSubDomain returns the subdomain only if it belongs to domainID. Returns nil if not found.
func (r *PostgresRepository) GetSubDomain(ctx context.Context, domainID, subdomainID string) (*domain.SubDomain, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subdomainColumns+` FROM subdomains
		WHERE id = $1 AND domain_id = $2`, subdomainID, domainID)
	var sd domain.SubDomain
	err := row.Scan(&sd.ID, &sd.DomainID, &sd.Name, &sd.Description, &sd.CreatedAt, &sd.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sd, nil
}

// ListSubDomains returns the domain's subdomains ordered by name.
func (r *PostgresRepository) ListSubDomains(ctx context.Context, domainID string) ([]*domain.SubDomain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subdomainColumns+` FROM subdomains
		WHERE domain_id = $1
		ORDER BY name ASC`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SubDomain
	for rows.Next() {
		var sd domain.SubDomain
		if err := rows.Scan(&sd.ID, &sd.DomainID, &sd.Name, &sd.Description, &sd.CreatedAt, &sd.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &sd)
	}
	return out, rows.Err()
}

// CreateSubDomain inserts the subdomain. Returns domain.ErrDuplicateName when
// the (domain, name) pair is taken.
func (r *PostgresRepository) CreateSubDomain(ctx context.Context, sd *domain.SubDomain) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subdomains (id, domain_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sd.ID, sd.DomainID, sd.Name, sd.Description, sd.CreatedAt, sd.UpdatedAt,
	)
	return asDuplicate(err)
}

// UpdateSubDomain writes name and description. Returns false if the row is absent.
func (r *PostgresRepository) UpdateSubDomain(ctx context.Context, sd *domain.SubDomain) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subdomains SET name = $2, description = $3, updated_at = $4
		WHERE id = $1`,
		sd.ID, sd.Name, sd.Description, time.Now().UTC(),
	)
	if err != nil {
		return false, asDuplicate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteSubDomainTree removes the subdomain and its capabilities in one
// transaction, capabilities first.
func (r *PostgresRepository) DeleteSubDomainTree(ctx context.Context, subdomainID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM capabilities WHERE subdomain_id = $1`, subdomainID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM subdomains WHERE id = $1`, subdomainID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Capabilities ---

const capabilityColumns = `id, subdomain_id, name, description, created_at, updated_at`

// GetCapability returns the capability only if it belongs to subdomainID. Returns nil if not found.
func (r *PostgresRepository) GetCapability(ctx context.Context, subdomainID, capabilityID string) (*domain.Capability, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+capabilityColumns+` FROM capabilities
		WHERE id = $1 AND subdomain_id = $2`, capabilityID, subdomainID)
	var c domain.Capability
	err := row.Scan(&c.ID, &c.SubDomainID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListCapabilities returns the subdomain's capabilities ordered by name.
func (r *PostgresRepository) ListCapabilities(ctx context.Context, subdomainID string) ([]*domain.Capability, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+capabilityColumns+` FROM capabilities
		WHERE subdomain_id = $1
		ORDER BY name ASC`, subdomainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Capability
	for rows.Next() {
		var c domain.Capability
		if err := rows.Scan(&c.ID, &c.SubDomainID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CreateCapability inserts the capability. Returns domain.ErrDuplicateName
// when the (subdomain, name) pair is taken.
func (r *PostgresRepository) CreateCapability(ctx context.Context, c *domain.Capability) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO capabilities (id, subdomain_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.SubDomainID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	return asDuplicate(err)
}

// UpdateCapability writes name and description. Returns false if the row is absent.
func (r *PostgresRepository) UpdateCapability(ctx context.Context, c *domain.Capability) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE capabilities SET name = $2, description = $3, updated_at = $4
		WHERE id = $1`,
		c.ID, c.Name, c.Description, time.Now().UTC(),
	)
	if err != nil {
		return false, asDuplicate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteCapability removes the capability. Leaf level, nothing to cascade.
func (r *PostgresRepository) DeleteCapability(ctx context.Context, capabilityID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM capabilities WHERE id = $1`, capabilityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
