package main

import (
	"context"

	"vendo/internal/platform/database"
	"vendo/internal/policy/models"
	policysvc "vendo/internal/policy/service"
	overridestore "vendo/internal/policy/store/override"
	roledefaultstore "vendo/internal/policy/store/roledefault"
	"vendo/internal/seeder"
	tenantsvc "vendo/internal/tenant/service"
	activationstore "vendo/internal/tenant/store/activation"
	branchstore "vendo/internal/tenant/store/branch"
	packagestore "vendo/internal/tenant/store/packages"
	tenantstore "vendo/internal/tenant/store/tenant"
	userstore "vendo/internal/tenant/store/user"
	"vendo/internal/tenant/workers/sweep"
	"vendo/pkg/platform/audit"
	auditpg "vendo/pkg/platform/audit/store/postgres"
)

// tenantStores covers every consumer of the tenant table: the tenant
// service, the entitlement resolver, and the trial sweep.
type tenantStores interface {
	tenantsvc.TenantStore
	sweep.TenantStore
}

// packageStores covers the tenant service and the package seeder.
type packageStores interface {
	tenantsvc.PackageStore
	seeder.PackageStore
}

// roleGrantStores covers seeding and startup table construction.
type roleGrantStores interface {
	Replace(ctx context.Context, rows []models.RoleGrant) error
	ListAll(ctx context.Context) ([]models.RoleGrant, error)
}

type stores struct {
	tenants     tenantStores
	packages    packageStores
	activations tenantsvc.ActivationStore
	users       tenantsvc.UserStore
	branches    tenantsvc.BranchStore
	overrides   policysvc.OverrideStore
	roleGrants  roleGrantStores
	audit       audit.Store
}

// buildStores selects PostgreSQL-backed stores when a pool is
// configured and in-memory stores otherwise.
func buildStores(pool *database.Pool) stores {
	if pool == nil {
		return stores{
			tenants:     tenantstore.NewMemoryStore(),
			packages:    packagestore.NewMemoryStore(),
			activations: activationstore.NewMemoryStore(),
			users:       userstore.NewMemoryStore(),
			branches:    branchstore.NewMemoryStore(),
			overrides:   overridestore.NewMemoryStore(),
			roleGrants:  roledefaultstore.NewMemoryStore(),
			audit:       audit.NewInMemoryStore(),
		}
	}

	db := pool.DB()
	return stores{
		tenants:     tenantstore.NewPostgresStore(db),
		packages:    packagestore.NewPostgresStore(db),
		activations: activationstore.NewPostgresStore(db),
		users:       userstore.NewPostgresStore(db),
		branches:    branchstore.NewPostgresStore(db),
		overrides:   overridestore.NewPostgresStore(db),
		roleGrants:  roledefaultstore.NewPostgresStore(db),
		audit:       auditpg.New(db),
	}
}
