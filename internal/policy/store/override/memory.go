// Package override stores per-user permission overrides.
package override

import (
	"context"
	"sort"
	"sync"

	"vendo/internal/policy/models"
	"vendo/internal/sentinel"
	id "vendo/pkg/domain"
)

type key struct {
	tenant id.TenantID
	cell   models.OverrideKey
}

type MemoryStore struct {
	mu   sync.RWMutex
	rows map[key]models.Override
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[key]models.Override)}
}

// Upsert writes the override cell, replacing any previous value.
func (s *MemoryStore) Upsert(_ context.Context, o models.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[key{tenant: o.TenantID, cell: o.Key()}] = o
	return nil
}

// Remove deletes the override cell, restoring the role default.
func (s *MemoryStore) Remove(_ context.Context, tenantID id.TenantID, cell models.OverrideKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{tenant: tenantID, cell: cell}
	if _, ok := s.rows[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rows, k)
	return nil
}

// ListByUser returns the user's overrides within the tenant.
func (s *MemoryStore) ListByUser(_ context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Override
	for k, o := range s.rows {
		if k.tenant == tenantID && o.UserID == userID {
			out = append(out, o)
		}
	}
	sortOverrides(out)
	return out, nil
}

// ListByTenant returns every override in the tenant.
func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Override
	for k, o := range s.rows {
		if k.tenant == tenantID {
			out = append(out, o)
		}
	}
	sortOverrides(out)
	return out, nil
}

func sortOverrides(out []models.Override) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Action < out[j].Action
	})
}
