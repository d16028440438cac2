// Package seeder populates stores with the baseline data the service
// needs at startup (subscription packages and role defaults) and,
// optionally, a demo tenant for local development.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vendo/internal/catalog"
	"vendo/internal/policy/models"
	"vendo/internal/policy/table"
	"vendo/internal/sentinel"
	tenantmodels "vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

// PackageStore defines methods for seeding subscription packages.
type PackageStore interface {
	Create(ctx context.Context, p tenantmodels.SubscriptionPackage) error
	FindByCode(ctx context.Context, code string) (*tenantmodels.SubscriptionPackage, error)
}

// RoleGrantStore defines methods for seeding role default grants.
type RoleGrantStore interface {
	Replace(ctx context.Context, rows []models.RoleGrant) error
}

// TenantService drives the demo tenant through its real lifecycle so
// seeded state is indistinguishable from organically created state.
type TenantService interface {
	Signup(ctx context.Context, req tenantmodels.SignupRequest) (*tenantmodels.Tenant, error)
	ApproveTrial(ctx context.Context, actor id.UserID, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	Upgrade(ctx context.Context, actor id.UserID, tenantID id.TenantID, req tenantmodels.UpgradeRequest) (*tenantmodels.Tenant, error)
	CreateUser(ctx context.Context, actor id.UserID, tenantID id.TenantID, req tenantmodels.CreateUserRequest) (*tenantmodels.User, error)
	CreateBranch(ctx context.Context, actor id.UserID, tenantID id.TenantID, req tenantmodels.CreateBranchRequest) (*tenantmodels.Branch, error)
	ActivateModule(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode, ownerGranted bool) (*tenantmodels.ModuleActivation, error)
}

type Seeder struct {
	packages PackageStore
	grants   RoleGrantStore
	logger   *slog.Logger
}

func New(packages PackageStore, grants RoleGrantStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		packages: packages,
		grants:   grants,
		logger:   logger,
	}
}

// SeedBaseline installs the package lineup and role default grants.
// Safe to run on every startup.
func (s *Seeder) SeedBaseline(ctx context.Context) error {
	if err := s.seedPackages(ctx); err != nil {
		return fmt.Errorf("seed packages: %w", err)
	}
	if err := s.grants.Replace(ctx, table.DefaultGrants()); err != nil {
		return fmt.Errorf("seed role grants: %w", err)
	}
	s.logger.Info("baseline data seeded")
	return nil
}

func (s *Seeder) seedPackages(ctx context.Context) error {
	lineup := []tenantmodels.SubscriptionPackage{
		{
			Code:        "starter",
			Name:        "Starter",
			MaxUsers:    5,
			MaxBranches: 1,
			ModuleCodes: []id.ModuleCode{
				catalog.ModulePOS, catalog.ModuleProducts, catalog.ModuleCustomers,
				catalog.ModuleSettings,
			},
		},
		{
			Code:        "standard",
			Name:        "Standard",
			MaxUsers:    20,
			MaxBranches: 3,
			ModuleCodes: []id.ModuleCode{
				catalog.ModulePOS, catalog.ModuleProducts, catalog.ModuleInventory,
				catalog.ModulePurchasing, catalog.ModuleCustomers, catalog.ModuleSuppliers,
				catalog.ModuleReports, catalog.ModuleSettings,
			},
		},
		{
			Code:        "premium",
			Name:        "Premium",
			MaxUsers:    100,
			MaxBranches: 20,
			ModuleCodes: []id.ModuleCode{
				catalog.ModulePOS, catalog.ModuleProducts, catalog.ModuleInventory,
				catalog.ModulePurchasing, catalog.ModuleCustomers, catalog.ModuleSuppliers,
				catalog.ModuleAccounting, catalog.ModuleReports, catalog.ModuleHR,
				catalog.ModuleSettings,
			},
		},
	}

	for _, p := range lineup {
		existing, err := s.packages.FindByCode(ctx, p.Code)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if existing != nil {
			continue
		}
		p.ID = id.PackageID(uuid.New())
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.packages.Create(ctx, p); err != nil {
			return err
		}
		s.logger.Info("package seeded", "code", p.Code)
	}
	return nil
}

// SeedDemo creates a demo tenant on the standard package with a few
// staff accounts. Intended for in-memory mode only.
func (s *Seeder) SeedDemo(ctx context.Context, tenants TenantService) error {
	tenant, err := tenants.Signup(ctx, tenantmodels.SignupRequest{
		Slug:             "demo-mart",
		Name:             "Demo Mart",
		BusinessCategory: "grocery",
	})
	if err != nil {
		return fmt.Errorf("seed demo tenant: %w", err)
	}

	actor := id.UserID(uuid.New())
	if _, err := tenants.ApproveTrial(ctx, actor, tenant.ID); err != nil {
		return fmt.Errorf("approve demo trial: %w", err)
	}

	standard, err := s.packages.FindByCode(ctx, "standard")
	if err != nil {
		return fmt.Errorf("find standard package: %w", err)
	}
	if _, err := tenants.Upgrade(ctx, actor, tenant.ID, tenantmodels.UpgradeRequest{
		PackageID:  standard.ID.String(),
		PaymentRef: "demo-payment",
	}); err != nil {
		return fmt.Errorf("upgrade demo tenant: %w", err)
	}

	staff := []tenantmodels.CreateUserRequest{
		{Email: "owner@demo-mart.test", Name: "Dewi Owner", Role: string(id.RoleTenantAdmin)},
		{Email: "manager@demo-mart.test", Name: "Made Manager", Role: string(id.RoleManager)},
		{Email: "cashier@demo-mart.test", Name: "Putu Cashier", Role: string(id.RoleCashier)},
	}
	for _, req := range staff {
		if _, err := tenants.CreateUser(ctx, actor, tenant.ID, req); err != nil {
			return fmt.Errorf("seed demo user %s: %w", req.Email, err)
		}
	}

	if _, err := tenants.CreateBranch(ctx, actor, tenant.ID, tenantmodels.CreateBranchRequest{
		Name:    "Main Store",
		Address: "Jl. Raya 1",
	}); err != nil {
		return fmt.Errorf("seed demo branch: %w", err)
	}

	s.logger.Info("demo tenant seeded", "tenant_id", tenant.ID, "slug", tenant.Slug)
	return nil
}
