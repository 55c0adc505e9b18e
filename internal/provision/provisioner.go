package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrProvisionFailed wraps mid-provisioning DDL failures. Callers may retry:
// every DDL statement is idempotent-checked, so a retry after partial
// failure does not error on already-created pieces.
var ErrProvisionFailed = errors.New("provisioning failed")

// Execer is the slice of *sql.DB the provisioner needs; tests fake it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Plan describes one partition to create.
type Plan struct {
	SchemaName   string
	DBRole       string
	DBRoleSecret string // plaintext; used for DDL only, never stored here
}

// Provisioner creates and destroys brand partitions (schema + restricted
// role) on the admin connection.
type Provisioner struct {
	db     Execer
	logger *zap.Logger
}

func NewProvisioner(db Execer, logger *zap.Logger) *Provisioner {
	return &Provisioner{db: db, logger: logger}
}

// Provision executes, in order: restricted role, schema owned by that role,
// tenant-local tables, grants. On any failure it tears down whatever it
// created and returns ErrProvisionFailed; the caller never commits a
// control-plane row for a partially-provisioned partition.
func (p *Provisioner) Provision(ctx context.Context, plan Plan) error {
	if !ValidIdentifier(plan.SchemaName) || !ValidIdentifier(plan.DBRole) {
		return fmt.Errorf("unsafe partition identifier: schema=%q role=%q", plan.SchemaName, plan.DBRole)
	}
	if plan.DBRoleSecret == "" {
		return fmt.Errorf("partition role secret is required")
	}

	if err := p.ensureRole(ctx, plan); err != nil {
		p.cleanup(ctx, plan)
		return fmt.Errorf("%w: create role %s: %v", ErrProvisionFailed, plan.DBRole, err)
	}

	if _, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s`, plan.SchemaName, plan.DBRole),
	); err != nil {
		p.cleanup(ctx, plan)
		return fmt.Errorf("%w: create schema %s: %v", ErrProvisionFailed, plan.SchemaName, err)
	}

	for _, stmt := range partitionTables(plan.SchemaName) {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			p.cleanup(ctx, plan)
			return fmt.Errorf("%w: apply partition schema for %s: %v", ErrProvisionFailed, plan.SchemaName, err)
		}
	}

	// Tables were created by the admin role; hand them to the partition
	// role. The role has no privileges anywhere else.
	grants := []string{
		fmt.Sprintf(`GRANT USAGE ON SCHEMA %s TO %s`, plan.SchemaName, plan.DBRole),
		fmt.Sprintf(`GRANT ALL ON ALL TABLES IN SCHEMA %s TO %s`, plan.SchemaName, plan.DBRole),
		fmt.Sprintf(`GRANT ALL ON ALL SEQUENCES IN SCHEMA %s TO %s`, plan.SchemaName, plan.DBRole),
		fmt.Sprintf(`ALTER ROLE %s SET search_path = %s`, plan.DBRole, plan.SchemaName),
	}
	for _, stmt := range grants {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			p.cleanup(ctx, plan)
			return fmt.Errorf("%w: grant partition privileges for %s: %v", ErrProvisionFailed, plan.SchemaName, err)
		}
	}

	p.logger.Info("Partition provisioned",
		zap.String("schema_name", plan.SchemaName),
		zap.String("db_role", plan.DBRole),
	)
	return nil
}

// ensureRole creates the restricted login role, or resets its password if a
// previous partial attempt already created it. Postgres has no
// CREATE ROLE IF NOT EXISTS, hence the pg_roles pre-check.
func (p *Provisioner) ensureRole(ctx context.Context, plan Plan) error {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, plan.DBRole,
	).Scan(&exists)
	if err != nil {
		return err
	}

	secret := strings.ReplaceAll(plan.DBRoleSecret, "'", "''")
	if exists {
		_, err = p.db.ExecContext(ctx,
			fmt.Sprintf(`ALTER ROLE %s WITH LOGIN PASSWORD '%s'`, plan.DBRole, secret))
		return err
	}
	_, err = p.db.ExecContext(ctx,
		fmt.Sprintf(`CREATE ROLE %s WITH LOGIN PASSWORD '%s' NOSUPERUSER NOCREATEDB NOCREATEROLE NOINHERIT`,
			plan.DBRole, secret))
	return err
}

// Destroy drops the partition and its role. Idempotent: destroying an
// already-absent partition succeeds.
func (p *Provisioner) Destroy(ctx context.Context, schemaName, dbRole string) error {
	if !ValidIdentifier(schemaName) || !ValidIdentifier(dbRole) {
		return fmt.Errorf("unsafe partition identifier: schema=%q role=%q", schemaName, dbRole)
	}

	if _, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, schemaName),
	); err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", schemaName, err)
	}
	if _, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`DROP ROLE IF EXISTS %s`, dbRole),
	); err != nil {
		return fmt.Errorf("failed to drop role %s: %w", dbRole, err)
	}

	p.logger.Info("Partition destroyed",
		zap.String("schema_name", schemaName),
		zap.String("db_role", dbRole),
	)
	return nil
}

// cleanup is best-effort teardown after a failed provisioning step; errors
// are logged and swallowed because the original failure is what the caller
// needs to see.
func (p *Provisioner) cleanup(ctx context.Context, plan Plan) {
	if err := p.Destroy(ctx, plan.SchemaName, plan.DBRole); err != nil {
		p.logger.Warn("Best-effort cleanup after failed provisioning also failed",
			zap.String("schema_name", plan.SchemaName),
			zap.Error(err),
		)
	}
}
