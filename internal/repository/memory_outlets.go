package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"brandhub-core/internal/domain"
)

// MemoryOutletsRepository backs tests; one instance models one partition.
type MemoryOutletsRepository struct {
	mu      sync.RWMutex
	outlets map[string]domain.Outlet // outletID -> Outlet
	grants  map[string]map[string]bool // brandUserID -> outletID set
}

func NewMemoryOutletsRepository() *MemoryOutletsRepository {
	return &MemoryOutletsRepository{
		outlets: map[string]domain.Outlet{},
		grants:  map[string]map[string]bool{},
	}
}

var _ OutletsRepository = (*MemoryOutletsRepository)(nil)

func (r *MemoryOutletsRepository) CreateOutlet(_ context.Context, o *domain.Outlet) error {
	if o.Code == "" || o.Name == "" {
		return fmt.Errorf("outlet_code and outlet_name are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.outlets {
		if existing.Code == o.Code {
			return fmt.Errorf("outlet %s: %w", o.Code, ErrConflict)
		}
	}

	o.OutletID = uuid.NewString()
	if o.Status == "" {
		o.Status = domain.OutletStatusActive
	}
	r.outlets[o.OutletID] = *o
	return nil
}

func (r *MemoryOutletsRepository) GetOutlet(_ context.Context, outletID string) (*domain.Outlet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.outlets[outletID]
	if !ok {
		return nil, ErrNotFound
	}
	out := o
	return &out, nil
}

func (r *MemoryOutletsRepository) ListOutlets(_ context.Context) ([]domain.Outlet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Outlet, 0, len(r.outlets))
	for _, o := range r.outlets {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryOutletsRepository) DeleteOutlet(_ context.Context, outletID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outlets[outletID]; !ok {
		return ErrNotFound
	}
	delete(r.outlets, outletID)
	for _, set := range r.grants {
		delete(set, outletID)
	}
	return nil
}

func (r *MemoryOutletsRepository) GrantOutlet(_ context.Context, brandUserID, outletID string) error {
	if brandUserID == "" || outletID == "" {
		return fmt.Errorf("brand_user_id and outlet_id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outlets[outletID]; !ok {
		return fmt.Errorf("failed to grant outlet access: %w", ErrNotFound)
	}
	if r.grants[brandUserID] == nil {
		r.grants[brandUserID] = map[string]bool{}
	}
	r.grants[brandUserID][outletID] = true
	return nil
}

func (r *MemoryOutletsRepository) RevokeOutlet(_ context.Context, brandUserID, outletID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.grants[brandUserID], outletID)
	return nil
}

func (r *MemoryOutletsRepository) ListAccessibleOutlets(_ context.Context, brandUserID string) ([]domain.Outlet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Outlet
	for outletID := range r.grants[brandUserID] {
		if o, ok := r.outlets[outletID]; ok {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryOutletsRepository) HasOutletAccess(_ context.Context, brandUserID, outletID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.grants[brandUserID][outletID], nil
}
