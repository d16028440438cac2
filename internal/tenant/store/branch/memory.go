// Package branch stores tenant locations.
package branch

import (
	"context"
	"sort"
	"sync"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[id.BranchID]models.Branch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[id.BranchID]models.Branch)}
}

func (s *MemoryStore) Create(_ context.Context, b models.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[b.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.byID[b.ID] = b
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, branchID id.BranchID) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[branchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Branch
	for _, b := range s.byID {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.byID {
		if b.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}
