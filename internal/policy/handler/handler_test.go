package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	"vendo/internal/policy/models"
	policysvc "vendo/internal/policy/service"
	overridestore "vendo/internal/policy/store/override"
	"vendo/internal/policy/table"
	tenantmodels "vendo/internal/tenant/models"
	activationstore "vendo/internal/tenant/store/activation"
	branchstore "vendo/internal/tenant/store/branch"
	packagestore "vendo/internal/tenant/store/packages"
	tenantstore "vendo/internal/tenant/store/tenant"
	userstore "vendo/internal/tenant/store/user"
	id "vendo/pkg/domain"
	"vendo/pkg/platform/middleware/auth"
	request "vendo/pkg/platform/middleware/request"
)

const testSigningKey = "policy-handler-test-key"

type HandlerSuite struct {
	suite.Suite

	router   http.Handler
	tenantID id.TenantID
	admin    tenantmodels.User
	cashier  tenantmodels.User
}

// SetupTest builds an active tenant with pos and settings effective,
// one tenant admin, and one cashier.
func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := s.T().Context()

	registry, err := catalog.NewRegistry(catalog.DefaultModules(), catalog.DefaultCategories())
	s.Require().NoError(err)
	tbl, err := table.New(table.DefaultGrants(), registry)
	s.Require().NoError(err)

	tenants := tenantstore.NewMemoryStore()
	packages := packagestore.NewMemoryStore()
	activations := activationstore.NewMemoryStore()
	users := userstore.NewMemoryStore()
	branches := branchstore.NewMemoryStore()
	overrides := overridestore.NewMemoryStore()

	now := time.Now().UTC()
	pkg := tenantmodels.SubscriptionPackage{
		ID: id.PackageID(uuid.New()), Code: "standard", Name: "Standard",
		MaxUsers: 20, MaxBranches: 3,
		ModuleCodes: []id.ModuleCode{catalog.ModulePOS, catalog.ModuleProducts},
		CreatedAt:   now,
	}
	s.Require().NoError(packages.Create(ctx, pkg))

	s.tenantID = id.TenantID(uuid.New())
	s.Require().NoError(tenants.Create(ctx, tenantmodels.Tenant{
		ID: s.tenantID, Slug: "mart", Name: "Mart", BusinessCategory: "grocery",
		Status: tenantmodels.StatusActive, PackageID: pkg.ID,
		CreatedAt: now, UpdatedAt: now,
	}))
	for _, m := range []id.ModuleCode{catalog.ModulePOS, catalog.ModuleSettings} {
		s.Require().NoError(activations.Upsert(ctx, tenantmodels.ModuleActivation{
			TenantID: s.tenantID, Module: m, Status: tenantmodels.ActivationActive, UpdatedAt: now,
		}))
	}

	s.admin = s.user(s.tenantID, id.RoleTenantAdmin)
	s.cashier = s.user(s.tenantID, id.RoleCashier)
	s.Require().NoError(users.Create(ctx, s.admin))
	s.Require().NoError(users.Create(ctx, s.cashier))

	resolver := entitlement.NewResolver(tenants, packages, activations, users, branches, registry, logger)
	service := policysvc.New(users, overrides, resolver, tbl, registry, policysvc.WithLogger(logger))

	h := New(service, logger)
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(auth.Middleware([]byte(testSigningKey), logger))
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) user(tenantID id.TenantID, role id.Role) tenantmodels.User {
	now := time.Now().UTC()
	return tenantmodels.User{
		ID: id.UserID(uuid.New()), TenantID: tenantID,
		Email: uuid.NewString()[:8] + "@mart.test", Name: "Staff",
		Role: role, Active: true, CreatedAt: now, UpdatedAt: now,
	}
}

func (s *HandlerSuite) bearer(u tenantmodels.User) string {
	claims := auth.Claims{
		TenantID: u.TenantID.String(),
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return "Bearer " + token
}

func (s *HandlerSuite) do(method, path string, body any, u tenantmodels.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", s.bearer(u))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) check(target tenantmodels.User, module id.ModuleCode, action id.Action) models.Decision {
	rec := s.do(http.MethodPost, "/tenants/"+s.tenantID.String()+"/permissions/check", CheckRequest{
		UserID: target.ID.String(), Module: string(module), Action: string(action),
	}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var decision models.Decision
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&decision))
	return decision
}

func (s *HandlerSuite) TestCheckEndpoint() {
	decision := s.check(s.cashier, catalog.ModulePOS, id.ActionView)
	s.True(decision.Allowed)
	s.Equal(models.ReasonRoleGrant, decision.Reason)

	decision = s.check(s.cashier, catalog.ModulePOS, id.ActionDelete)
	s.False(decision.Allowed)
	s.Equal(models.ReasonNoRoleGrant, decision.Reason)
}

func (s *HandlerSuite) TestCheckUnknownModule() {
	rec := s.do(http.MethodPost, "/tenants/"+s.tenantID.String()+"/permissions/check", CheckRequest{
		UserID: s.cashier.ID.String(), Module: "timetravel", Action: "view",
	}, s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMatrixEndpoint() {
	rec := s.do(http.MethodGet, "/tenants/"+s.tenantID.String()+"/permissions/matrix", nil, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var matrix models.Matrix
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&matrix))
	s.Equal(s.tenantID, matrix.TenantID)
	s.Len(matrix.Users, 2)
	for _, grid := range matrix.Users {
		s.Len(grid.Cells, len(catalog.DefaultModules()))
	}
}

func (s *HandlerSuite) TestOverrideLifecycle() {
	allowed := true
	base := "/tenants/" + s.tenantID.String() + "/permissions/overrides"

	rec := s.do(http.MethodPost, base, SetOverrideRequest{
		UserID: s.cashier.ID.String(), Module: string(catalog.ModulePOS),
		Action: string(id.ActionDelete), Allowed: &allowed,
	}, s.admin)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	decision := s.check(s.cashier, catalog.ModulePOS, id.ActionDelete)
	s.True(decision.Allowed)
	s.Equal(models.ReasonOverrideGrant, decision.Reason)

	rec = s.do(http.MethodGet, base, nil, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list OverrideListResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&list))
	s.Len(list.Overrides, 1)

	cell := base + "/" + s.cashier.ID.String() + "/" + string(catalog.ModulePOS) + "/" + string(id.ActionDelete)
	rec = s.do(http.MethodDelete, cell, nil, s.admin)
	s.Equal(http.StatusNoContent, rec.Code)

	decision = s.check(s.cashier, catalog.ModulePOS, id.ActionDelete)
	s.False(decision.Allowed)
	s.Equal(models.ReasonNoRoleGrant, decision.Reason)
}

func (s *HandlerSuite) TestOverrideRequiresSettingsPermission() {
	allowed := true
	rec := s.do(http.MethodPost, "/tenants/"+s.tenantID.String()+"/permissions/overrides", SetOverrideRequest{
		UserID: s.cashier.ID.String(), Module: string(catalog.ModulePOS),
		Action: string(id.ActionDelete), Allowed: &allowed,
	}, s.cashier)
	s.Equal(http.StatusForbidden, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) TestOverrideMissingAllowedField() {
	rec := s.do(http.MethodPost, "/tenants/"+s.tenantID.String()+"/permissions/overrides", map[string]string{
		"user_id": s.cashier.ID.String(), "module": string(catalog.ModulePOS), "action": string(id.ActionDelete),
	}, s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCrossTenantAccessDenied() {
	outsider := s.user(id.TenantID(uuid.New()), id.RoleTenantAdmin)
	rec := s.do(http.MethodGet, "/tenants/"+s.tenantID.String()+"/permissions/matrix", nil, outsider)
	s.Equal(http.StatusForbidden, rec.Code)
}
