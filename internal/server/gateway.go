package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/openstack-gateway/internal/config"
	"github.com/morezero/openstack-gateway/pkg/audit"
	"github.com/morezero/openstack-gateway/pkg/catalog"
	"github.com/morezero/openstack-gateway/pkg/db"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/openstack"
	"github.com/morezero/openstack-gateway/pkg/schema"
	"github.com/morezero/openstack-gateway/pkg/tools"
)

// Gateway bundles the components shared by every transport.
type Gateway struct {
	Catalog *catalog.ResolvedCatalog
	Router  *gateway.Router
	Tools   *tools.Handler
}

// NewGatewayParams holds parameters for NewGateway.
type NewGatewayParams struct {
	Config *config.Config
	// Catalog is loaded from Config when nil.
	Catalog *catalog.ResolvedCatalog
	// Executor overrides the authenticated HTTP executor built from Config.
	Executor  gateway.Executor
	Observers []gateway.Observer
}

// NewGateway loads the catalog and wires router, validator and tool handler.
func NewGateway(params NewGatewayParams) (*Gateway, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("%s - config is required", logPrefix)
	}

	resolved := params.Catalog
	if resolved == nil {
		var err error
		if resolved, err = LoadCatalog(cfg); err != nil {
			return nil, err
		}
	}

	validator := schema.NewValidator()
	if err := validator.Precompile(); err != nil {
		return nil, fmt.Errorf("%s - failed to compile request contracts: %w", logPrefix, err)
	}

	executor := params.Executor
	if executor == nil {
		tokens := openstack.NewPasswordTokenProvider(cfg.Credentials(), nil)
		executor = openstack.NewExecutor(tokens, nil)
	}

	router := gateway.NewRouter(gateway.RouterParams{
		Executor:      executor,
		Endpoints:     cfg.Endpoints(),
		SlimResponses: cfg.SlimResponses,
		Observer:      gateway.Observers(params.Observers),
	})

	for f, ok := range router.Health().Families {
		if !ok {
			slog.Warn(fmt.Sprintf("%s - %s base URL is not configured; its operations will fail", logPrefix, f))
		}
	}

	return &Gateway{
		Catalog: resolved,
		Router:  router,
		Tools: tools.NewHandler(tools.HandlerParams{
			Router:    router,
			Validator: validator,
			Catalog:   resolved,
		}),
	}, nil
}

// LoadCatalog loads the tool catalog named by GATEWAY_CATALOG_FILE, falling back to the embedded one.
func LoadCatalog(cfg *config.Config) (*catalog.ResolvedCatalog, error) {
	cat, err := catalog.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load catalog: %w", logPrefix, err)
	}
	return catalog.Resolve(cat), nil
}

// openAudit connects to the audit database when DATABASE_URL is set. It returns
// a nil pool when audit is disabled.
func openAudit(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, *db.Repository, *audit.Recorder, error) {
	if !cfg.AuditEnabled() {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, invocation audit disabled", logPrefix))
		return nil, nil, nil, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	if cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	repo := db.NewRepository(pool)
	return pool, repo, audit.NewRecorder(audit.NewRecorderParams{Store: repo}), nil
}
