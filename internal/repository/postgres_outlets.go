package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brandhub-core/internal/domain"
)

// PostgresOutletsRepository 分区内门店与访问授权Repository实现。
// Partition-scoped like PostgresBrandUsersRepository.
type PostgresOutletsRepository struct {
	db *sql.DB
}

func NewPostgresOutletsRepository(db *sql.DB) *PostgresOutletsRepository {
	return &PostgresOutletsRepository{db: db}
}

var _ OutletsRepository = (*PostgresOutletsRepository)(nil)

const outletColumns = `
	outlet_id::text,
	outlet_code,
	outlet_name,
	address,
	COALESCE(status, 'active') as status
`

func (r *PostgresOutletsRepository) CreateOutlet(ctx context.Context, o *domain.Outlet) error {
	if o.Code == "" || o.Name == "" {
		return fmt.Errorf("outlet_code and outlet_name are required")
	}
	query := `
		INSERT INTO outlets (outlet_code, outlet_name, address, status)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'active'))
		RETURNING outlet_id::text
	`
	err := r.db.QueryRowContext(ctx, query, o.Code, o.Name, o.Address, o.Status).Scan(&o.OutletID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("outlet %s: %w", o.Code, ErrConflict)
		}
		return fmt.Errorf("failed to create outlet: %w", err)
	}
	return nil
}

func (r *PostgresOutletsRepository) GetOutlet(ctx context.Context, outletID string) (*domain.Outlet, error) {
	if outletID == "" {
		return nil, fmt.Errorf("outlet_id is required")
	}
	var o domain.Outlet
	err := r.db.QueryRowContext(ctx,
		`SELECT `+outletColumns+` FROM outlets WHERE outlet_id = $1::uuid`, outletID,
	).Scan(&o.OutletID, &o.Code, &o.Name, &o.Address, &o.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get outlet: %w", err)
	}
	return &o, nil
}

func (r *PostgresOutletsRepository) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outletColumns+` FROM outlets ORDER BY outlet_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outlets: %w", err)
	}
	defer rows.Close()
	return collectOutlets(rows)
}

func (r *PostgresOutletsRepository) DeleteOutlet(ctx context.Context, outletID string) error {
	if outletID == "" {
		return fmt.Errorf("outlet_id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outlets WHERE outlet_id = $1::uuid`, outletID)
	if err != nil {
		return fmt.Errorf("failed to delete outlet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantOutlet is idempotent via ON CONFLICT DO NOTHING. Referential
// integrity rejects grants for unknown users or outlets.
func (r *PostgresOutletsRepository) GrantOutlet(ctx context.Context, brandUserID, outletID string) error {
	if brandUserID == "" || outletID == "" {
		return fmt.Errorf("brand_user_id and outlet_id are required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outlet_grants (brand_user_id, outlet_id) VALUES ($1::uuid, $2::uuid) ON CONFLICT DO NOTHING`,
		brandUserID, outletID)
	if err != nil {
		return fmt.Errorf("failed to grant outlet access: %w", err)
	}
	return nil
}

// RevokeOutlet removes a grant; revoking an absent grant is a no-op.
func (r *PostgresOutletsRepository) RevokeOutlet(ctx context.Context, brandUserID, outletID string) error {
	if brandUserID == "" || outletID == "" {
		return fmt.Errorf("brand_user_id and outlet_id are required")
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM outlet_grants WHERE brand_user_id = $1::uuid AND outlet_id = $2::uuid`,
		brandUserID, outletID)
	if err != nil {
		return fmt.Errorf("failed to revoke outlet access: %w", err)
	}
	return nil
}

func (r *PostgresOutletsRepository) ListAccessibleOutlets(ctx context.Context, brandUserID string) ([]domain.Outlet, error) {
	if brandUserID == "" {
		return nil, fmt.Errorf("brand_user_id is required")
	}
	query := `
		SELECT o.outlet_id::text, o.outlet_code, o.outlet_name, o.address, COALESCE(o.status, 'active')
		FROM outlets o
		JOIN outlet_grants g ON g.outlet_id = o.outlet_id
		WHERE g.brand_user_id = $1::uuid
		ORDER BY o.outlet_code
	`
	rows, err := r.db.QueryContext(ctx, query, brandUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accessible outlets: %w", err)
	}
	defer rows.Close()
	return collectOutlets(rows)
}

func (r *PostgresOutletsRepository) HasOutletAccess(ctx context.Context, brandUserID, outletID string) (bool, error) {
	if brandUserID == "" || outletID == "" {
		return false, fmt.Errorf("brand_user_id and outlet_id are required")
	}
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM outlet_grants WHERE brand_user_id = $1::uuid AND outlet_id = $2::uuid)`,
		brandUserID, outletID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check outlet access: %w", err)
	}
	return ok, nil
}

func collectOutlets(rows *sql.Rows) ([]domain.Outlet, error) {
	var outlets []domain.Outlet
	for rows.Next() {
		var o domain.Outlet
		if err := rows.Scan(&o.OutletID, &o.Code, &o.Name, &o.Address, &o.Status); err != nil {
			return nil, fmt.Errorf("failed to scan outlet: %w", err)
		}
		outlets = append(outlets, o)
	}
	return outlets, rows.Err()
}
