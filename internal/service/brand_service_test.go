package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"brandhub-core/internal/domain"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
	"brandhub-core/internal/tenantdb"
)

type brandFixture struct {
	svc         BrandService
	brands      *repository.MemoryBrandsRepository
	principals  *repository.MemoryPrincipalsRepository
	partitions  *memoryPartitions
	partitioner *fakePartitioner
	evictor     *fakeEvictor
	box         *secrets.Box
	owner       *domain.Principal
}

func newBrandFixture(t *testing.T) *brandFixture {
	t.Helper()
	f := &brandFixture{
		brands:      repository.NewMemoryBrandsRepository(),
		principals:  repository.NewMemoryPrincipalsRepository(),
		partitions:  newMemoryPartitions(),
		partitioner: &fakePartitioner{},
		evictor:     &fakeEvictor{},
		box:         newTestBox(t),
	}
	f.owner = &domain.Principal{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, f.principals.CreatePrincipal(context.Background(), f.owner))

	credentials := NewCredentialService(f.partitions, testLogger())
	f.svc = NewBrandService(
		f.brands, f.principals, f.partitioner, f.evictor,
		credentials, f.box, nil, nil, testLogger(),
	)
	return f
}

func TestCreateBrand(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateBrand(ctx, CreateBrandRequest{
		BrandName:        "Bensu Kitchen",
		OwnerPrincipalID: f.owner.PrincipalID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Brand.BrandID)
	require.True(t, strings.HasPrefix(resp.Brand.SchemaName, "bensu_kitchen_"))
	require.Equal(t, resp.Brand.SchemaName+"_role", resp.Brand.DBRole)
	require.Equal(t, domain.BrandStatusActive, resp.Brand.Status)

	// Partition was provisioned with the identifiers that got committed,
	// and the stored role secret decrypts back to the provisioned one.
	require.Len(t, f.partitioner.provisioned, 1)
	plan := f.partitioner.provisioned[0]
	require.Equal(t, resp.Brand.SchemaName, plan.SchemaName)
	stored, err := f.brands.GetBrand(ctx, resp.Brand.BrandID)
	require.NoError(t, err)
	require.NotEqual(t, plan.DBRoleSecret, stored.DBRoleSecret)
	decrypted, err := f.box.Decrypt(stored.DBRoleSecret)
	require.NoError(t, err)
	require.Equal(t, plan.DBRoleSecret, decrypted)

	// First machine credential exists in the new partition with Owner role
	require.NotNil(t, resp.Credential)
	users, err := f.partitions.Users(ctx, resp.Brand.SchemaName)
	require.NoError(t, err)
	ownerUser, err := users.GetBrandUser(ctx, resp.Credential.BrandUserID)
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleOwner}, ownerUser.Roles)
	require.NotEqual(t, resp.Credential.Password, ownerUser.PasswordHash)
}

func TestCreateBrandDuplicateName(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Bensu Kitchen", OwnerPrincipalID: f.owner.PrincipalID})
	require.NoError(t, err)

	_, err = f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Bensu Kitchen", OwnerPrincipalID: f.owner.PrincipalID})
	require.ErrorIs(t, err, ErrBrandExists)
	require.Len(t, f.partitioner.provisioned, 1, "duplicate must not provision a second partition")
}

func TestCreateBrandProvisionFailureLeavesNoRow(t *testing.T) {
	f := newBrandFixture(t)
	f.partitioner.provisionErr = tenantdb.ErrPartitionUnavailable
	ctx := context.Background()

	_, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Doomed Brand", OwnerPrincipalID: f.owner.PrincipalID})
	require.Error(t, err)

	_, err = f.brands.GetBrandByName(ctx, "Doomed Brand")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateBrandCredentialFailureUnwinds(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	// The schema name is random-suffixed, so force every partition
	// resolve to fail: the credential step is the first one to need it.
	f.partitions.setFailure("*", tenantdb.ErrPartitionUnavailable)

	_, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Unlucky Brand", OwnerPrincipalID: f.owner.PrincipalID})
	require.Error(t, err)

	// Partition torn down and row removed
	require.NotEmpty(t, f.partitioner.destroyed)
	_, err = f.brands.GetBrandByName(ctx, "Unlucky Brand")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateBrandUnknownOwner(t *testing.T) {
	f := newBrandFixture(t)

	_, err := f.svc.CreateBrand(context.Background(), CreateBrandRequest{
		BrandName: "Orphan Brand", OwnerPrincipalID: "no-such-principal",
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDestroyBrand(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Short Lived", OwnerPrincipalID: f.owner.PrincipalID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DestroyBrand(ctx, resp.Brand.BrandID, f.owner.PrincipalID))
	require.Contains(t, f.evictor.evicted, resp.Brand.SchemaName)
	require.Contains(t, f.partitioner.destroyed, resp.Brand.SchemaName)
	_, err = f.brands.GetBrand(ctx, resp.Brand.BrandID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Destroy is idempotent
	require.NoError(t, f.svc.DestroyBrand(ctx, resp.Brand.BrandID, f.owner.PrincipalID))
}

func TestDestroyBrandNonOwner(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Guarded Brand", OwnerPrincipalID: f.owner.PrincipalID})
	require.NoError(t, err)

	err = f.svc.DestroyBrand(ctx, resp.Brand.BrandID, "someone-else")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.brands.GetBrand(ctx, resp.Brand.BrandID)
	require.NoError(t, err, "brand must survive a forbidden destroy")
}

func TestListBrandsHidesRoleSecret(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Visible Brand", OwnerPrincipalID: f.owner.PrincipalID})
	require.NoError(t, err)

	brands, err := f.svc.ListBrands(ctx, f.owner.PrincipalID)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	require.Empty(t, brands[0].DBRoleSecret)
}

func TestDeletePrincipalCascades(t *testing.T) {
	f := newBrandFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Cascade A", OwnerPrincipalID: f.owner.PrincipalID})
	require.NoError(t, err)
	b, err := f.svc.CreateBrand(ctx, CreateBrandRequest{BrandName: "Cascade B", OwnerPrincipalID: f.owner.PrincipalID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePrincipal(ctx, f.owner.PrincipalID))

	require.Contains(t, f.partitioner.destroyed, a.Brand.SchemaName)
	require.Contains(t, f.partitioner.destroyed, b.Brand.SchemaName)
	_, err = f.principals.GetPrincipal(ctx, f.owner.PrincipalID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
