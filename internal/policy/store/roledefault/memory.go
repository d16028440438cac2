// Package roledefault stores the seed rows for the role policy table.
// The table itself is built once at startup from ListAll.
package roledefault

import (
	"context"
	"sync"

	"vendo/internal/policy/models"
)

type MemoryStore struct {
	mu   sync.RWMutex
	rows []models.RoleGrant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Replace swaps the full grant set. Seeding is idempotent, the last
// write wins.
func (s *MemoryStore) Replace(_ context.Context, rows []models.RoleGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append([]models.RoleGrant(nil), rows...)
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]models.RoleGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.RoleGrant(nil), s.rows...), nil
}
