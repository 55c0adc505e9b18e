package provision

import "fmt"

// partitionTables returns the tenant-local DDL for one partition, in
// dependency order. All statements are IF NOT EXISTS so a retried
// provisioning attempt does not trip over pieces it already created.
func partitionTables(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.brand_users (
			brand_user_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			secret VARCHAR(32) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name VARCHAR(255),
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.brand_user_roles (
			brand_user_id UUID NOT NULL REFERENCES %s.brand_users(brand_user_id) ON DELETE CASCADE,
			role_name VARCHAR(100) NOT NULL,
			PRIMARY KEY (brand_user_id, role_name)
		)`, schema, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.outlets (
			outlet_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			outlet_code VARCHAR(100) NOT NULL UNIQUE,
			outlet_name VARCHAR(255) NOT NULL,
			address TEXT,
			status VARCHAR(50) NOT NULL DEFAULT 'active'
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.outlet_grants (
			brand_user_id UUID NOT NULL REFERENCES %s.brand_users(brand_user_id) ON DELETE CASCADE,
			outlet_id UUID NOT NULL REFERENCES %s.outlets(outlet_id) ON DELETE CASCADE,
			PRIMARY KEY (brand_user_id, outlet_id)
		)`, schema, schema, schema),
	}
}
