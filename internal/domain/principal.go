package domain

import "time"

const (
	PrincipalStatusActive   = "active"
	PrincipalStatusDisabled = "disabled"
)

// Principal 全局身份（对应 principals 表）。
// A principal is a global human identity; it is never scoped to a brand
// partition and owns zero or more brands.
type Principal struct {
	PrincipalID  string `db:"principal_id"` // UUID, PRIMARY KEY
	Email        string `db:"email"`        // UNIQUE
	PasswordHash string `db:"password_hash"` // bcrypt, only persisted form
	DisplayName  string `db:"display_name"`

	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// Roles from principal_roles, loaded with the row.
	Roles []string
}

func (p *Principal) IsActive() bool {
	return p.Status == PrincipalStatusActive
}
