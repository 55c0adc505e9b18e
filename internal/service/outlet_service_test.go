package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"brandhub-core/internal/domain"
)

func newOutletFixture(t *testing.T) (OutletService, *memoryPartitions, *domain.BrandUser) {
	t.Helper()
	partitions := newMemoryPartitions()
	svc := NewOutletService(partitions, nil, testLogger())

	users, err := partitions.Users(context.Background(), "brand_a_0001")
	require.NoError(t, err)
	u := &domain.BrandUser{Secret: "machinesecret001", PasswordHash: "hash"}
	require.NoError(t, users.CreateBrandUser(context.Background(), u))
	return svc, partitions, u
}

func TestOutletLifecycle(t *testing.T) {
	svc, _, _ := newOutletFixture(t)
	ctx := context.Background()

	o, err := svc.CreateOutlet(ctx, "brand_a_0001", "OUT-1", "Downtown", "1 Main St")
	require.NoError(t, err)
	require.NotEmpty(t, o.OutletID)
	require.Equal(t, "1 Main St", o.Address.String)

	listed, err := svc.ListOutlets(ctx, "brand_a_0001")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.DeleteOutlet(ctx, "brand_a_0001", o.OutletID))
	require.ErrorIs(t, svc.DeleteOutlet(ctx, "brand_a_0001", o.OutletID), ErrNotFound)
}

func TestGrantAndCheckAccess(t *testing.T) {
	svc, _, u := newOutletFixture(t)
	ctx := context.Background()

	o, err := svc.CreateOutlet(ctx, "brand_a_0001", "OUT-1", "Downtown", "")
	require.NoError(t, err)

	ok, err := svc.CheckAccess(ctx, "brand_a_0001", u.BrandUserID, o.OutletID)
	require.NoError(t, err)
	require.False(t, ok, "no access before a grant")

	require.NoError(t, svc.Grant(ctx, "brand_a_0001", u.BrandUserID, o.OutletID))
	require.NoError(t, svc.Grant(ctx, "brand_a_0001", u.BrandUserID, o.OutletID), "grant is idempotent")

	ok, err = svc.CheckAccess(ctx, "brand_a_0001", u.BrandUserID, o.OutletID)
	require.NoError(t, err)
	require.True(t, ok)

	accessible, err := svc.ListAccessible(ctx, "brand_a_0001", u.BrandUserID)
	require.NoError(t, err)
	require.Len(t, accessible, 1)

	require.NoError(t, svc.Revoke(ctx, "brand_a_0001", u.BrandUserID, o.OutletID))
	require.NoError(t, svc.Revoke(ctx, "brand_a_0001", u.BrandUserID, o.OutletID), "revoke is idempotent")

	ok, err = svc.CheckAccess(ctx, "brand_a_0001", u.BrandUserID, o.OutletID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGrantUnknownTargets(t *testing.T) {
	svc, _, u := newOutletFixture(t)
	ctx := context.Background()

	o, err := svc.CreateOutlet(ctx, "brand_a_0001", "OUT-1", "Downtown", "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Grant(ctx, "brand_a_0001", "no-such-user", o.OutletID), ErrNotFound)
	require.ErrorIs(t, svc.Grant(ctx, "brand_a_0001", u.BrandUserID, "no-such-outlet"), ErrNotFound)
}

// Grants live inside one partition; another partition knows nothing of them.
func TestGrantsArePartitionLocal(t *testing.T) {
	svc, partitions, u := newOutletFixture(t)
	ctx := context.Background()

	o, err := svc.CreateOutlet(ctx, "brand_a_0001", "OUT-1", "Downtown", "")
	require.NoError(t, err)
	require.NoError(t, svc.Grant(ctx, "brand_a_0001", u.BrandUserID, o.OutletID))

	_, err = partitions.Outlets(ctx, "brand_b_0001")
	require.NoError(t, err)
	ok, err := svc.CheckAccess(ctx, "brand_b_0001", u.BrandUserID, o.OutletID)
	require.NoError(t, err)
	require.False(t, ok)
}
