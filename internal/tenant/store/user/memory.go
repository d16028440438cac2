// Package user stores staff accounts.
package user

import (
	"context"
	"sort"
	"sync"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[id.UserID]models.User
	emailIdx map[string]id.UserID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[id.UserID]models.User),
		emailIdx: make(map[string]id.UserID),
	}
}

func (s *MemoryStore) Create(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[u.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	if _, exists := s.emailIdx[u.Email]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.byID[u.ID] = u
	s.emailIdx[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) Update(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[u.ID] = u
	return nil
}

func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.User
	for _, u := range s.byID {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *MemoryStore) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, u := range s.byID {
		if u.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}
