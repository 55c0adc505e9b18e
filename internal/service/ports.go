package service

import (
	"context"

	"brandhub-core/internal/provision"
	"brandhub-core/internal/repository"
)

// PartitionAccess opens partition-scoped repositories by schema name.
// Production wiring is tenantdb.PartitionStores; tests plug in memory
// repositories keyed by schema.
type PartitionAccess interface {
	Users(ctx context.Context, schemaName string) (repository.BrandUsersRepository, error)
	Outlets(ctx context.Context, schemaName string) (repository.OutletsRepository, error)
}

// Partitioner creates and destroys the physical partition (schema + role).
// Production wiring is *provision.Provisioner.
type Partitioner interface {
	Provision(ctx context.Context, plan provision.Plan) error
	Destroy(ctx context.Context, schemaName, dbRole string) error
}

// PoolEvictor drops a partition's cached pool and routing record after
// destroy or suspension. Production wiring is *tenantdb.Router.
type PoolEvictor interface {
	Evict(ctx context.Context, schemaName string)
}
