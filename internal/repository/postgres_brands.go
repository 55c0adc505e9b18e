package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brandhub-core/internal/domain"
)

// PostgresBrandsRepository 租户注册表Repository实现（控制面连接）。
type PostgresBrandsRepository struct {
	db *sql.DB
}

func NewPostgresBrandsRepository(db *sql.DB) *PostgresBrandsRepository {
	return &PostgresBrandsRepository{db: db}
}

var _ BrandsRepository = (*PostgresBrandsRepository)(nil)

const brandColumns = `
	brand_id::text,
	brand_name,
	owner_principal_id::text,
	schema_name,
	db_role,
	db_role_secret,
	COALESCE(status, 'active') as status,
	created_at,
	updated_at
`

// CreateBrand commits the registration row. The partition must already be
// provisioned; the unique constraints on brand_name/schema_name/db_role are
// the final arbiter against concurrent creation of the same name.
func (r *PostgresBrandsRepository) CreateBrand(ctx context.Context, b *domain.Brand) error {
	if b.BrandName == "" || b.OwnerPrincipalID == "" {
		return fmt.Errorf("brand_name and owner_principal_id are required")
	}
	if b.SchemaName == "" || b.DBRole == "" || b.DBRoleSecret == "" {
		return fmt.Errorf("partition identifiers and role secret are required")
	}

	query := `
		INSERT INTO brands (brand_name, owner_principal_id, schema_name, db_role, db_role_secret, status)
		VALUES ($1, $2::uuid, $3, $4, $5, COALESCE(NULLIF($6, ''), 'active'))
		RETURNING brand_id::text, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.BrandName, b.OwnerPrincipalID, b.SchemaName, b.DBRole, b.DBRoleSecret, b.Status,
	).Scan(&b.BrandID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("brand %s: %w", b.BrandName, ErrConflict)
		}
		return fmt.Errorf("failed to create brand: %w", err)
	}
	return nil
}

func (r *PostgresBrandsRepository) GetBrand(ctx context.Context, brandID string) (*domain.Brand, error) {
	if brandID == "" {
		return nil, fmt.Errorf("brand_id is required")
	}
	query := `SELECT ` + brandColumns + ` FROM brands WHERE brand_id = $1::uuid`
	return r.scanOne(ctx, query, brandID)
}

func (r *PostgresBrandsRepository) GetBrandByName(ctx context.Context, brandName string) (*domain.Brand, error) {
	if brandName == "" {
		return nil, fmt.Errorf("brand_name is required")
	}
	query := `SELECT ` + brandColumns + ` FROM brands WHERE brand_name = $1`
	return r.scanOne(ctx, query, brandName)
}

func (r *PostgresBrandsRepository) GetBrandBySchema(ctx context.Context, schemaName string) (*domain.Brand, error) {
	if schemaName == "" {
		return nil, fmt.Errorf("schema_name is required")
	}
	query := `SELECT ` + brandColumns + ` FROM brands WHERE schema_name = $1`
	return r.scanOne(ctx, query, schemaName)
}

func (r *PostgresBrandsRepository) ListBrandsByOwner(ctx context.Context, ownerPrincipalID string) ([]domain.Brand, error) {
	if ownerPrincipalID == "" {
		return nil, fmt.Errorf("owner_principal_id is required")
	}
	query := `SELECT ` + brandColumns + ` FROM brands WHERE owner_principal_id = $1::uuid ORDER BY brand_name`
	rows, err := r.db.QueryContext(ctx, query, ownerPrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	var brands []domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := scanBrand(rows, &b); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *PostgresBrandsRepository) UpdateBrandStatus(ctx context.Context, brandID, status string) error {
	if brandID == "" || status == "" {
		return fmt.Errorf("brand_id and status are required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE brands SET status = $2, updated_at = now() WHERE brand_id = $1::uuid`,
		brandID, status)
	if err != nil {
		return fmt.Errorf("failed to update brand status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBrand is a hard delete of the registration row; the partition
// itself is torn down by the provisioner before this is called.
func (r *PostgresBrandsRepository) DeleteBrand(ctx context.Context, brandID string) error {
	if brandID == "" {
		return fmt.Errorf("brand_id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM brands WHERE brand_id = $1::uuid`, brandID)
	if err != nil {
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBrandsRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Brand, error) {
	var b domain.Brand
	err := scanBrand(r.db.QueryRowContext(ctx, query, arg), &b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrand(row rowScanner, b *domain.Brand) error {
	err := row.Scan(
		&b.BrandID,
		&b.BrandName,
		&b.OwnerPrincipalID,
		&b.SchemaName,
		&b.DBRole,
		&b.DBRoleSecret,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan brand: %w", err)
	}
	return nil
}
