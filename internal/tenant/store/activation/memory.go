// Package activation stores per-tenant module activation rows.
package activation

import (
	"context"
	"sort"
	"sync"
	"time"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

type key struct {
	tenant id.TenantID
	module id.ModuleCode
}

type MemoryStore struct {
	mu   sync.RWMutex
	rows map[key]models.ModuleActivation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[key]models.ModuleActivation)}
}

// Upsert writes the activation row for (tenant, module).
func (s *MemoryStore) Upsert(_ context.Context, a models.ModuleActivation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[key{tenant: a.TenantID, module: a.Module}] = a
	return nil
}

func (s *MemoryStore) Find(_ context.Context, tenantID id.TenantID, module id.ModuleCode) (*models.ModuleActivation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.rows[key{tenant: tenantID, module: module}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

// ListByTenant returns all activation rows for the tenant, any status.
func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]models.ModuleActivation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ModuleActivation
	for k, a := range s.rows {
		if k.tenant == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out, nil
}

// DeactivateOutside flips active rows whose module is not in keep to
// inactive, skipping owner-granted rows. It returns the modules it
// flipped so the service can audit each one.
func (s *MemoryStore) DeactivateOutside(_ context.Context, tenantID id.TenantID, keep map[id.ModuleCode]struct{}, now time.Time) ([]id.ModuleCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped []id.ModuleCode
	for k, a := range s.rows {
		if k.tenant != tenantID || a.Status != models.ActivationActive || a.OwnerGranted {
			continue
		}
		if _, ok := keep[a.Module]; ok {
			continue
		}
		a.Status = models.ActivationInactive
		a.UpdatedAt = now
		s.rows[k] = a
		flipped = append(flipped, a.Module)
	}
	sort.Slice(flipped, func(i, j int) bool { return flipped[i] < flipped[j] })
	return flipped, nil
}
