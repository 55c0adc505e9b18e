package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"brandhub-core/internal/domain"
)

// MemoryBrandUsersRepository backs tests; one instance models one partition.
type MemoryBrandUsersRepository struct {
	mu    sync.RWMutex
	users map[string]domain.BrandUser // brandUserID -> BrandUser
}

func NewMemoryBrandUsersRepository() *MemoryBrandUsersRepository {
	return &MemoryBrandUsersRepository{users: map[string]domain.BrandUser{}}
}

var _ BrandUsersRepository = (*MemoryBrandUsersRepository)(nil)

func (r *MemoryBrandUsersRepository) CreateBrandUser(_ context.Context, u *domain.BrandUser) error {
	if u.Secret == "" || u.PasswordHash == "" {
		return fmt.Errorf("secret and password_hash are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Secret == u.Secret {
			return fmt.Errorf("brand user secret: %w", ErrConflict)
		}
	}

	now := time.Now()
	u.BrandUserID = uuid.NewString()
	if u.Status == "" {
		u.Status = domain.BrandUserStatusActive
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.BrandUserID] = cloneBrandUser(*u)
	return nil
}

func (r *MemoryBrandUsersRepository) GetBrandUser(_ context.Context, brandUserID string) (*domain.BrandUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[brandUserID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneBrandUser(u)
	return &out, nil
}

func (r *MemoryBrandUsersRepository) GetBrandUserBySecret(_ context.Context, secret string) (*domain.BrandUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Secret == secret {
			out := cloneBrandUser(u)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryBrandUsersRepository) ListBrandUsers(_ context.Context) ([]domain.BrandUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BrandUser, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneBrandUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryBrandUsersRepository) UpdatePasswordHash(_ context.Context, brandUserID, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("password_hash is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[brandUserID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	r.users[brandUserID] = u
	return nil
}

func (r *MemoryBrandUsersRepository) TouchLastUsed(_ context.Context, brandUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[brandUserID]
	if !ok {
		return nil
	}
	u.LastUsedAt = sql.NullTime{Time: time.Now(), Valid: true}
	r.users[brandUserID] = u
	return nil
}

func (r *MemoryBrandUsersRepository) DeleteBrandUser(_ context.Context, brandUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[brandUserID]; !ok {
		return ErrNotFound
	}
	delete(r.users, brandUserID)
	return nil
}

func cloneBrandUser(u domain.BrandUser) domain.BrandUser {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}
