package domain

import "time"

// Brand statuses. A brand row only exists once its partition is fully
// provisioned, so "active" is the normal state from the first commit.
const (
	BrandStatusActive    = "active"
	BrandStatusSuspended = "suspended"
)

// Brand 控制面租户注册行 (corresponds to the public.brands table).
// SchemaName/DBRole identify the isolated partition; DBRoleSecret is the
// AES-GCM ciphertext of the partition role's password, never the plaintext.
type Brand struct {
	BrandID          string `db:"brand_id"` // UUID, PRIMARY KEY
	BrandName        string `db:"brand_name"`
	OwnerPrincipalID string `db:"owner_principal_id"`

	SchemaName   string `db:"schema_name"` // [a-z][a-z0-9_]*, globally unique
	DBRole       string `db:"db_role"`     // restricted login role, globally unique
	DBRoleSecret string `db:"db_role_secret"`

	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (b *Brand) IsActive() bool {
	return b.Status == BrandStatusActive
}
