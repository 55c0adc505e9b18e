package tenantdb

import (
	"context"

	"brandhub-core/internal/repository"
)

// PartitionStores materializes partition-scoped repositories on top of the
// router. Services depend on this through their own small interface, so
// tests can swap it for memory repositories without a router at all.
type PartitionStores struct {
	router *Router
}

func NewPartitionStores(router *Router) *PartitionStores {
	return &PartitionStores{router: router}
}

func (s *PartitionStores) Users(ctx context.Context, schemaName string) (repository.BrandUsersRepository, error) {
	h, err := s.router.Resolve(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	return repository.NewPostgresBrandUsersRepository(h.DB()), nil
}

func (s *PartitionStores) Outlets(ctx context.Context, schemaName string) (repository.OutletsRepository, error) {
	h, err := s.router.Resolve(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	return repository.NewPostgresOutletsRepository(h.DB()), nil
}
