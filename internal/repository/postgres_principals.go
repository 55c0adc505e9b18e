package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"brandhub-core/internal/domain"
)

// PostgresPrincipalsRepository 全局身份Repository实现（控制面连接）。
type PostgresPrincipalsRepository struct {
	db *sql.DB
}

func NewPostgresPrincipalsRepository(db *sql.DB) *PostgresPrincipalsRepository {
	return &PostgresPrincipalsRepository{db: db}
}

var _ PrincipalsRepository = (*PostgresPrincipalsRepository)(nil)

const principalColumns = `
	principal_id::text,
	email,
	password_hash,
	COALESCE(display_name, '') as display_name,
	COALESCE(status, 'active') as status,
	created_at,
	updated_at
`

func (r *PostgresPrincipalsRepository) CreatePrincipal(ctx context.Context, p *domain.Principal) error {
	if p.Email == "" || p.PasswordHash == "" {
		return fmt.Errorf("email and password_hash are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO principals (email, password_hash, display_name, status)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'active'))
		RETURNING principal_id::text, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, p.Email, p.PasswordHash, p.DisplayName, p.Status).
		Scan(&p.PrincipalID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("principal %s: %w", p.Email, ErrConflict)
		}
		return fmt.Errorf("failed to create principal: %w", err)
	}

	for _, role := range p.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO principal_roles (principal_id, role_name) VALUES ($1::uuid, $2) ON CONFLICT DO NOTHING`,
			p.PrincipalID, role,
		); err != nil {
			return fmt.Errorf("failed to assign principal role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit principal: %w", err)
	}
	return nil
}

func (r *PostgresPrincipalsRepository) GetPrincipal(ctx context.Context, principalID string) (*domain.Principal, error) {
	if principalID == "" {
		return nil, fmt.Errorf("principal_id is required")
	}
	query := `SELECT ` + principalColumns + ` FROM principals WHERE principal_id = $1::uuid`
	return r.scanOne(ctx, query, principalID)
}

func (r *PostgresPrincipalsRepository) GetPrincipalByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	query := `SELECT ` + principalColumns + ` FROM principals WHERE lower(email) = lower($1)`
	return r.scanOne(ctx, query, email)
}

func (r *PostgresPrincipalsRepository) UpdatePassword(ctx context.Context, principalID, passwordHash string) error {
	if principalID == "" || passwordHash == "" {
		return fmt.Errorf("principal_id and password_hash are required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE principals SET password_hash = $2, updated_at = now() WHERE principal_id = $1::uuid`,
		principalID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update principal password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPrincipalsRepository) SetActive(ctx context.Context, principalID string, active bool) error {
	if principalID == "" {
		return fmt.Errorf("principal_id is required")
	}
	status := domain.PrincipalStatusActive
	if !active {
		status = domain.PrincipalStatusDisabled
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE principals SET status = $2, updated_at = now() WHERE principal_id = $1::uuid`,
		principalID, status)
	if err != nil {
		return fmt.Errorf("failed to update principal status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPrincipalsRepository) DeletePrincipal(ctx context.Context, principalID string) error {
	if principalID == "" {
		return fmt.Errorf("principal_id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM principals WHERE principal_id = $1::uuid`, principalID)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPrincipalsRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Principal, error) {
	var p domain.Principal
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.PrincipalID,
		&p.Email,
		&p.PasswordHash,
		&p.DisplayName,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	roles, err := r.loadRoles(ctx, p.PrincipalID)
	if err != nil {
		return nil, err
	}
	p.Roles = roles
	return &p, nil
}

func (r *PostgresPrincipalsRepository) loadRoles(ctx context.Context, principalID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_name FROM principal_roles WHERE principal_id = $1::uuid ORDER BY role_name`,
		principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan principal role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
