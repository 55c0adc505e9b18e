package domain

import (
	"database/sql"
	"time"
)

const (
	BrandUserStatusActive   = "active"
	BrandUserStatusDisabled = "disabled"
)

// RoleOwner is granted to the brand user created at provisioning time.
const RoleOwner = "Owner"

// BrandUser 租户内服务身份（对应每个分区 schema 的 brand_users 表）。
// Secret is the public machine identifier presented at sign-in; it is unique
// only within its own brand partition, not globally. PasswordHash is bcrypt
// and is the only persisted form of the credential.
type BrandUser struct {
	BrandUserID  string `db:"brand_user_id"` // UUID, PRIMARY KEY
	Secret       string `db:"secret"`        // UNIQUE within partition
	PasswordHash string `db:"password_hash"`
	DisplayName  string `db:"display_name"`

	Status     string       `db:"status"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`

	// Roles from brand_user_roles, loaded with the row.
	Roles []string
}

func (u *BrandUser) IsActive() bool {
	return u.Status == BrandUserStatusActive
}
