// Package packages stores subscription package definitions.
package packages

import (
	"context"
	"sort"
	"sync"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.PackageID]models.SubscriptionPackage
	codeIdx map[string]id.PackageID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[id.PackageID]models.SubscriptionPackage),
		codeIdx: make(map[string]id.PackageID),
	}
}

func (s *MemoryStore) Create(_ context.Context, p models.SubscriptionPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	if _, exists := s.codeIdx[p.Code]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.byID[p.ID] = clonePackage(p)
	s.codeIdx[p.Code] = p.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, packageID id.PackageID) (*models.SubscriptionPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[packageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clonePackage(p)
	return &out, nil
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (*models.SubscriptionPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	packageID, ok := s.codeIdx[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clonePackage(s.byID[packageID])
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.SubscriptionPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SubscriptionPackage, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, clonePackage(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func clonePackage(p models.SubscriptionPackage) models.SubscriptionPackage {
	p.ModuleCodes = append([]id.ModuleCode(nil), p.ModuleCodes...)
	return p
}
