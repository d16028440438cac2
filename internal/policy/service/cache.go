package service

import (
	"sync"

	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
)

// matrixCache holds one built matrix per tenant. Entries never expire
// on their own, invalidation is explicit from every write path that
// could change a decision. Cached matrices are treated as immutable.
type matrixCache struct {
	mu       sync.RWMutex
	byTenant map[id.TenantID]*models.Matrix
}

func newMatrixCache() *matrixCache {
	return &matrixCache{byTenant: make(map[id.TenantID]*models.Matrix)}
}

func (c *matrixCache) get(tenantID id.TenantID) (*models.Matrix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.byTenant[tenantID]
	return m, ok
}

func (c *matrixCache) put(tenantID id.TenantID, m *models.Matrix) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byTenant[tenantID] = m
}

func (c *matrixCache) remove(tenantID id.TenantID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.byTenant, tenantID)
}
