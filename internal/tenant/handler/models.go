package handler

import (
	"sort"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

type TenantListResponse struct {
	Tenants []models.Tenant `json:"tenants"`
}

type PackageListResponse struct {
	Packages []models.SubscriptionPackage `json:"packages"`
}

type UserListResponse struct {
	Users []models.User `json:"users"`
}

type BranchListResponse struct {
	Branches []models.Branch `json:"branches"`
}

type ActivationListResponse struct {
	Activations []models.ModuleActivation `json:"activations"`
}

type RecommendationListResponse struct {
	Recommendations []catalog.Recommendation `json:"recommendations"`
}

// EntitlementResponse is the wire form of an entitlement snapshot, with
// the module set flattened to a sorted list.
type EntitlementResponse struct {
	TenantID    id.TenantID               `json:"tenant_id"`
	Status      models.SubscriptionStatus `json:"status"`
	Modules     []id.ModuleCode           `json:"modules"`
	MaxUsers    int                       `json:"max_users"`
	MaxBranches int                       `json:"max_branches"`
	Frozen      bool                      `json:"frozen"`
}

func toEntitlementResponse(s *entitlement.Snapshot) *EntitlementResponse {
	modules := make([]id.ModuleCode, 0, len(s.Modules))
	for code := range s.Modules {
		modules = append(modules, code)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })

	return &EntitlementResponse{
		TenantID:    s.TenantID,
		Status:      s.Status,
		Modules:     modules,
		MaxUsers:    s.MaxUsers,
		MaxBranches: s.MaxBranches,
		Frozen:      s.Frozen,
	}
}
