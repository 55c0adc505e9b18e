package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brandhub-core/internal/domain"
)

// PostgresBrandUsersRepository 分区内服务身份Repository实现。
// The *sql.DB it holds is pinned to one partition via search_path, so all
// table names are unqualified and cross-partition access is impossible at
// the connection level.
type PostgresBrandUsersRepository struct {
	db *sql.DB
}

func NewPostgresBrandUsersRepository(db *sql.DB) *PostgresBrandUsersRepository {
	return &PostgresBrandUsersRepository{db: db}
}

var _ BrandUsersRepository = (*PostgresBrandUsersRepository)(nil)

const brandUserColumns = `
	brand_user_id::text,
	secret,
	password_hash,
	COALESCE(display_name, '') as display_name,
	COALESCE(status, 'active') as status,
	last_used_at,
	created_at,
	updated_at
`

func (r *PostgresBrandUsersRepository) CreateBrandUser(ctx context.Context, u *domain.BrandUser) error {
	if u.Secret == "" || u.PasswordHash == "" {
		return fmt.Errorf("secret and password_hash are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO brand_users (secret, password_hash, display_name, status)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'active'))
		RETURNING brand_user_id::text, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, u.Secret, u.PasswordHash, u.DisplayName, u.Status).
		Scan(&u.BrandUserID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("brand user secret: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create brand user: %w", err)
	}

	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO brand_user_roles (brand_user_id, role_name) VALUES ($1::uuid, $2) ON CONFLICT DO NOTHING`,
			u.BrandUserID, role,
		); err != nil {
			return fmt.Errorf("failed to assign brand user role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit brand user: %w", err)
	}
	return nil
}

func (r *PostgresBrandUsersRepository) GetBrandUser(ctx context.Context, brandUserID string) (*domain.BrandUser, error) {
	if brandUserID == "" {
		return nil, fmt.Errorf("brand_user_id is required")
	}
	query := `SELECT ` + brandUserColumns + ` FROM brand_users WHERE brand_user_id = $1::uuid`
	return r.scanOne(ctx, query, brandUserID)
}

func (r *PostgresBrandUsersRepository) GetBrandUserBySecret(ctx context.Context, secret string) (*domain.BrandUser, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	query := `SELECT ` + brandUserColumns + ` FROM brand_users WHERE secret = $1`
	return r.scanOne(ctx, query, secret)
}

func (r *PostgresBrandUsersRepository) ListBrandUsers(ctx context.Context) ([]domain.BrandUser, error) {
	query := `SELECT ` + brandUserColumns + ` FROM brand_users ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list brand users: %w", err)
	}
	defer rows.Close()

	var users []domain.BrandUser
	for rows.Next() {
		var u domain.BrandUser
		if err := rows.Scan(
			&u.BrandUserID, &u.Secret, &u.PasswordHash, &u.DisplayName,
			&u.Status, &u.LastUsedAt, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan brand user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		roles, err := r.loadRoles(ctx, users[i].BrandUserID)
		if err != nil {
			return nil, err
		}
		users[i].Roles = roles
	}
	return users, nil
}

func (r *PostgresBrandUsersRepository) UpdatePasswordHash(ctx context.Context, brandUserID, passwordHash string) error {
	if brandUserID == "" || passwordHash == "" {
		return fmt.Errorf("brand_user_id and password_hash are required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE brand_users SET password_hash = $2, updated_at = now() WHERE brand_user_id = $1::uuid`,
		brandUserID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastUsed records a successful sign-in. Best-effort from the caller's
// point of view; still returns the error so the service can log it.
func (r *PostgresBrandUsersRepository) TouchLastUsed(ctx context.Context, brandUserID string) error {
	if brandUserID == "" {
		return fmt.Errorf("brand_user_id is required")
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE brand_users SET last_used_at = now() WHERE brand_user_id = $1::uuid`,
		brandUserID)
	if err != nil {
		return fmt.Errorf("failed to touch last_used_at: %w", err)
	}
	return nil
}

func (r *PostgresBrandUsersRepository) DeleteBrandUser(ctx context.Context, brandUserID string) error {
	if brandUserID == "" {
		return fmt.Errorf("brand_user_id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM brand_users WHERE brand_user_id = $1::uuid`, brandUserID)
	if err != nil {
		return fmt.Errorf("failed to delete brand user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBrandUsersRepository) scanOne(ctx context.Context, query string, arg any) (*domain.BrandUser, error) {
	var u domain.BrandUser
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.BrandUserID, &u.Secret, &u.PasswordHash, &u.DisplayName,
		&u.Status, &u.LastUsedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get brand user: %w", err)
	}

	roles, err := r.loadRoles(ctx, u.BrandUserID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *PostgresBrandUsersRepository) loadRoles(ctx context.Context, brandUserID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_name FROM brand_user_roles WHERE brand_user_id = $1::uuid ORDER BY role_name`,
		brandUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand user roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan brand user role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
