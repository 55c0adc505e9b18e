package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"brandhub-core/internal/domain"
)

// MemoryBrandsRepository backs tests and DB-less development.
type MemoryBrandsRepository struct {
	mu     sync.RWMutex
	brands map[string]domain.Brand // brandID -> Brand
}

func NewMemoryBrandsRepository() *MemoryBrandsRepository {
	return &MemoryBrandsRepository{brands: map[string]domain.Brand{}}
}

var _ BrandsRepository = (*MemoryBrandsRepository)(nil)

func (r *MemoryBrandsRepository) CreateBrand(_ context.Context, b *domain.Brand) error {
	if b.BrandName == "" || b.OwnerPrincipalID == "" {
		return fmt.Errorf("brand_name and owner_principal_id are required")
	}
	if b.SchemaName == "" || b.DBRole == "" || b.DBRoleSecret == "" {
		return fmt.Errorf("partition identifiers and role secret are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.brands {
		if existing.BrandName == b.BrandName || existing.SchemaName == b.SchemaName || existing.DBRole == b.DBRole {
			return fmt.Errorf("brand %s: %w", b.BrandName, ErrConflict)
		}
	}

	now := time.Now()
	b.BrandID = uuid.NewString()
	if b.Status == "" {
		b.Status = domain.BrandStatusActive
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	r.brands[b.BrandID] = *b
	return nil
}

func (r *MemoryBrandsRepository) GetBrand(_ context.Context, brandID string) (*domain.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.brands[brandID]
	if !ok {
		return nil, ErrNotFound
	}
	out := b
	return &out, nil
}

func (r *MemoryBrandsRepository) GetBrandByName(_ context.Context, brandName string) (*domain.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.brands {
		if b.BrandName == brandName {
			out := b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryBrandsRepository) GetBrandBySchema(_ context.Context, schemaName string) (*domain.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.brands {
		if b.SchemaName == schemaName {
			out := b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryBrandsRepository) ListBrandsByOwner(_ context.Context, ownerPrincipalID string) ([]domain.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Brand
	for _, b := range r.brands {
		if b.OwnerPrincipalID == ownerPrincipalID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BrandName < out[j].BrandName })
	return out, nil
}

func (r *MemoryBrandsRepository) UpdateBrandStatus(_ context.Context, brandID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.brands[brandID]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	r.brands[brandID] = b
	return nil
}

func (r *MemoryBrandsRepository) DeleteBrand(_ context.Context, brandID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.brands[brandID]; !ok {
		return ErrNotFound
	}
	delete(r.brands, brandID)
	return nil
}
