package domain

import "database/sql"

const (
	OutletStatusActive   = "active"
	OutletStatusDisabled = "disabled"
)

// Outlet 门店（对应分区 schema 的 outlets 表）。
// Code is unique within the brand partition.
type Outlet struct {
	OutletID string         `db:"outlet_id"` // UUID, PRIMARY KEY
	Code     string         `db:"outlet_code"`
	Name     string         `db:"outlet_name"`
	Address  sql.NullString `db:"address"`
	Status   string         `db:"status"`
}

// OutletGrant presence implies access; there is no separate allow/deny flag.
type OutletGrant struct {
	BrandUserID string `db:"brand_user_id"`
	OutletID    string `db:"outlet_id"`
}
