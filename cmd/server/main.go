package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"vendo/internal/catalog"
	cataloghandler "vendo/internal/catalog/handler"
	"vendo/internal/entitlement"
	"vendo/internal/platform/config"
	"vendo/internal/platform/database"
	"vendo/internal/platform/health"
	"vendo/internal/platform/logger"
	policyhandler "vendo/internal/policy/handler"
	policymetrics "vendo/internal/policy/metrics"
	policysvc "vendo/internal/policy/service"
	"vendo/internal/policy/table"
	"vendo/internal/policy/tracer"
	"vendo/internal/quota"
	"vendo/internal/seeder"
	tenanthandler "vendo/internal/tenant/handler"
	tenantmetrics "vendo/internal/tenant/metrics"
	tenantsvc "vendo/internal/tenant/service"
	"vendo/internal/tenant/workers/sweep"
	httptransport "vendo/internal/transport/http"
	"vendo/pkg/platform/audit/publisher"
)

// main wires stores, services, workers, and the HTTP router. Business
// logic lives in the internal services packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("initializing vendo",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"memory_mode", cfg.DatabaseURL == "",
	)

	registry, err := catalog.NewRegistry(catalog.DefaultModules(), catalog.DefaultCategories())
	if err != nil {
		log.Error("invalid module catalog", "error", err)
		os.Exit(1)
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	st := buildStores(pool)

	auditor := publisher.New(st.audit,
		publisher.WithAsyncBuffer(cfg.AuditBufferSize),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	ctx := context.Background()

	sd := seeder.New(st.packages, st.roleGrants, log)
	if err := sd.SeedBaseline(ctx); err != nil {
		log.Error("baseline seeding failed", "error", err)
		os.Exit(1)
	}

	grantRows, err := st.roleGrants.ListAll(ctx)
	if err != nil {
		log.Error("loading role defaults failed", "error", err)
		os.Exit(1)
	}
	tbl, err := table.New(grantRows, registry)
	if err != nil {
		log.Error("invalid role policy table", "error", err)
		os.Exit(1)
	}

	resolver := entitlement.NewResolver(st.tenants, st.packages, st.activations, st.users, st.branches, registry, log)
	enforcer := quota.NewEnforcer(resolver, st.users, st.branches,
		quota.WithLogger(log),
		quota.WithMetrics(quota.NewMetrics()),
	)

	policyService := policysvc.New(st.users, st.overrides, resolver, tbl, registry,
		policysvc.WithLogger(log),
		policysvc.WithMetrics(policymetrics.New()),
		policysvc.WithAuditPublisher(auditor),
		policysvc.WithTracer(tracer.NewOTel()),
	)

	tenantMetrics := tenantmetrics.New()
	tenantService := tenantsvc.New(st.tenants, st.packages, st.activations, st.users, st.branches, registry, resolver, enforcer,
		tenantsvc.WithLogger(log),
		tenantsvc.WithMetrics(tenantMetrics),
		tenantsvc.WithAuditPublisher(auditor),
		tenantsvc.WithMatrixInvalidator(policyService),
		tenantsvc.WithTrialDuration(cfg.TrialDuration),
	)

	if cfg.SeedDemoData {
		if err := sd.SeedDemo(ctx, tenantService); err != nil {
			log.Error("demo seeding failed", "error", err)
			os.Exit(1)
		}
	}

	sweeper := sweep.New(st.tenants,
		sweep.WithLogger(log),
		sweep.WithInterval(cfg.SweepInterval),
		sweep.WithMetrics(tenantMetrics),
		sweep.WithAuditPublisher(auditor),
		sweep.WithMatrixInvalidator(policyService),
	)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		})
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Tenant:        tenanthandler.New(tenantService, policyService, log),
		Policy:        policyhandler.New(policyService, log),
		Catalog:       cataloghandler.New(registry),
		Health:        healthHandler,
		JWTSigningKey: []byte(cfg.JWTSigningKey),
		AdminToken:    cfg.AdminToken,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
