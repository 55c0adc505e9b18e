package repository

import (
	"context"
	"errors"

	"brandhub-core/internal/domain"
)

// Sentinel errors shared by all implementations. Services branch on these
// with errors.Is and never parse error strings.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// PrincipalsRepository 全局身份存取（控制面 public.principals）。
type PrincipalsRepository interface {
	CreatePrincipal(ctx context.Context, p *domain.Principal) error
	GetPrincipal(ctx context.Context, principalID string) (*domain.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*domain.Principal, error)
	UpdatePassword(ctx context.Context, principalID, passwordHash string) error
	SetActive(ctx context.Context, principalID string, active bool) error
	DeletePrincipal(ctx context.Context, principalID string) error
}

// BrandsRepository 租户注册表存取（控制面 public.brands）。
// GetBrandBySchema serves the connection router's reverse lookup.
type BrandsRepository interface {
	CreateBrand(ctx context.Context, b *domain.Brand) error
	GetBrand(ctx context.Context, brandID string) (*domain.Brand, error)
	GetBrandByName(ctx context.Context, brandName string) (*domain.Brand, error)
	GetBrandBySchema(ctx context.Context, schemaName string) (*domain.Brand, error)
	ListBrandsByOwner(ctx context.Context, ownerPrincipalID string) ([]domain.Brand, error)
	UpdateBrandStatus(ctx context.Context, brandID, status string) error
	DeleteBrand(ctx context.Context, brandID string) error
}

// BrandUsersRepository operates inside one brand partition. Implementations
// are bound to a connection whose search_path is pinned to that partition's
// schema, so queries use unqualified table names.
type BrandUsersRepository interface {
	CreateBrandUser(ctx context.Context, u *domain.BrandUser) error
	GetBrandUser(ctx context.Context, brandUserID string) (*domain.BrandUser, error)
	GetBrandUserBySecret(ctx context.Context, secret string) (*domain.BrandUser, error)
	ListBrandUsers(ctx context.Context) ([]domain.BrandUser, error)
	UpdatePasswordHash(ctx context.Context, brandUserID, passwordHash string) error
	TouchLastUsed(ctx context.Context, brandUserID string) error
	DeleteBrandUser(ctx context.Context, brandUserID string) error
}

// OutletsRepository is partition-scoped like BrandUsersRepository.
// Grant/Revoke are idempotent: granting twice or revoking an absent grant
// is a no-op success.
type OutletsRepository interface {
	CreateOutlet(ctx context.Context, o *domain.Outlet) error
	GetOutlet(ctx context.Context, outletID string) (*domain.Outlet, error)
	ListOutlets(ctx context.Context) ([]domain.Outlet, error)
	DeleteOutlet(ctx context.Context, outletID string) error

	GrantOutlet(ctx context.Context, brandUserID, outletID string) error
	RevokeOutlet(ctx context.Context, brandUserID, outletID string) error
	ListAccessibleOutlets(ctx context.Context, brandUserID string) ([]domain.Outlet, error)
	HasOutletAccess(ctx context.Context, brandUserID, outletID string) (bool, error)
}
