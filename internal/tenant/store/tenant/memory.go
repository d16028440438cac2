// Package tenant provides tenant persistence. The memory store backs
// demo mode and tests, the postgres store production. Both return
// sentinel errors, translation to domain errors happens in the service.
package tenant

import (
	"context"
	"sort"
	"sync"
	"time"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

// MemoryStore is an in-memory tenant store guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.TenantID]models.Tenant
	slugIdx map[string]id.TenantID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[id.TenantID]models.Tenant),
		slugIdx: make(map[string]id.TenantID),
	}
}

// Create inserts a tenant, rejecting duplicate IDs and slugs.
func (s *MemoryStore) Create(_ context.Context, t models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	if _, exists := s.slugIdx[t.Slug]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.byID[t.ID] = t
	s.slugIdx[t.Slug] = t.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.slugIdx[slug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	t := s.byID[tenantID]
	return &t, nil
}

// Update writes t only if the stored status still equals expected.
// Lifecycle transitions go through this compare-and-swap so concurrent
// writers (sweep vs upgrade) cannot clobber each other.
func (s *MemoryStore) Update(_ context.Context, t models.Tenant, expected models.SubscriptionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != expected {
		return sentinel.ErrStaleState
	}
	s.byID[t.ID] = t
	return nil
}

// ListExpiredTrials returns trial_active tenants whose window lapsed
// at or before asOf.
func (s *MemoryStore) ListExpiredTrials(_ context.Context, asOf time.Time) ([]models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Tenant
	for _, t := range s.byID {
		if t.Status == models.StatusTrialActive && t.TrialEndsAt != nil && !t.TrialEndsAt.After(asOf) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// List returns every tenant ordered by slug.
func (s *MemoryStore) List(_ context.Context) ([]models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
