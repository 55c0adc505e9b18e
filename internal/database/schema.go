package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Control-plane tables live in the public schema. Brand partitions never
// reference them directly; the schema_name/db_role pair is the only bridge.
var controlPlaneDDL = []string{
	`CREATE TABLE IF NOT EXISTS principals (
		principal_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name VARCHAR(255),
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS principal_roles (
		principal_id UUID NOT NULL REFERENCES principals(principal_id) ON DELETE CASCADE,
		role_name VARCHAR(100) NOT NULL,
		PRIMARY KEY (principal_id, role_name)
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		brand_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		brand_name VARCHAR(255) NOT NULL UNIQUE,
		owner_principal_id UUID NOT NULL REFERENCES principals(principal_id) ON DELETE CASCADE,
		schema_name VARCHAR(63) NOT NULL UNIQUE,
		db_role VARCHAR(63) NOT NULL UNIQUE,
		db_role_secret TEXT NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureControlPlane creates the control-plane tables if they do not exist.
// Safe to run on every startup.
func EnsureControlPlane(ctx context.Context, db *sql.DB) error {
	for _, stmt := range controlPlaneDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply control-plane DDL: %w", err)
		}
	}
	return nil
}
