package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"brandhub-core/internal/domain"
)

// MemoryPrincipalsRepository backs tests and DB-less development.
type MemoryPrincipalsRepository struct {
	mu         sync.RWMutex
	principals map[string]domain.Principal // principalID -> Principal
}

func NewMemoryPrincipalsRepository() *MemoryPrincipalsRepository {
	return &MemoryPrincipalsRepository{principals: map[string]domain.Principal{}}
}

var _ PrincipalsRepository = (*MemoryPrincipalsRepository)(nil)

func (r *MemoryPrincipalsRepository) CreatePrincipal(_ context.Context, p *domain.Principal) error {
	if p.Email == "" || p.PasswordHash == "" {
		return fmt.Errorf("email and password_hash are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.principals {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("principal %s: %w", p.Email, ErrConflict)
		}
	}

	now := time.Now()
	p.PrincipalID = uuid.NewString()
	if p.Status == "" {
		p.Status = domain.PrincipalStatusActive
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	r.principals[p.PrincipalID] = *p
	return nil
}

func (r *MemoryPrincipalsRepository) GetPrincipal(_ context.Context, principalID string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[principalID]
	if !ok {
		return nil, ErrNotFound
	}
	out := p
	out.Roles = append([]string(nil), p.Roles...)
	return &out, nil
}

func (r *MemoryPrincipalsRepository) GetPrincipalByEmail(_ context.Context, email string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.principals {
		if strings.EqualFold(p.Email, email) {
			out := p
			out.Roles = append([]string(nil), p.Roles...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryPrincipalsRepository) UpdatePassword(_ context.Context, principalID, passwordHash string) error {
	if principalID == "" || passwordHash == "" {
		return fmt.Errorf("principal_id and password_hash are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	p.PasswordHash = passwordHash
	p.UpdatedAt = time.Now()
	r.principals[principalID] = p
	return nil
}

func (r *MemoryPrincipalsRepository) SetActive(_ context.Context, principalID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	p.Status = domain.PrincipalStatusActive
	if !active {
		p.Status = domain.PrincipalStatusDisabled
	}
	p.UpdatedAt = time.Now()
	r.principals[principalID] = p
	return nil
}

func (r *MemoryPrincipalsRepository) DeletePrincipal(_ context.Context, principalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.principals[principalID]; !ok {
		return ErrNotFound
	}
	delete(r.principals, principalID)
	return nil
}

// ListEmails is a test helper; not part of PrincipalsRepository.
func (r *MemoryPrincipalsRepository) ListEmails() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emails := make([]string, 0, len(r.principals))
	for _, p := range r.principals {
		emails = append(emails, p.Email)
	}
	sort.Strings(emails)
	return emails
}
