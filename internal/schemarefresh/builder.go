package schemarefresh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"modelql/internal/dbexec"
	"modelql/internal/introspection"
	"modelql/internal/manifest"
	"modelql/internal/model"
	"modelql/internal/naming"
	"modelql/internal/observability"
	"modelql/internal/schemagen"
	"modelql/internal/sqlstore"
	"modelql/internal/sqlutil"
	"modelql/internal/typemap"

	"github.com/graphql-go/graphql"
)

// BuildSchemaConfig defines inputs for shared schema assembly.
type BuildSchemaConfig struct {
	// Queryer is required when Introspect is set.
	Queryer      introspection.Queryer
	Executor     dbexec.QueryExecutor
	Dialect      sqlutil.Dialect
	DatabaseName string
	Introspect   bool
	// Manifest is an optional path to a YAML model manifest applied on top of
	// the introspected catalog.
	Manifest       string
	Naming         naming.Config
	ScalarMappings map[string]string
	CaseSensitive  bool
	Logger         *slog.Logger
	Metrics        *observability.GraphQLMetrics
}

// BuildSchemaResult contains schema artifacts produced by BuildSchema.
type BuildSchemaResult struct {
	// DBSchema is nil when the catalog came only from a manifest.
	DBSchema      *introspection.Schema
	Catalog       *model.Catalog
	Store         *sqlstore.Store
	GraphQLSchema graphql.Schema
}

// BuildSchema runs the schema assembly pipeline: introspect, apply the
// manifest, then generate the GraphQL schema over a SQL store.
func BuildSchema(ctx context.Context, cfg BuildSchemaConfig) (*BuildSchemaResult, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("schema builder requires a query executor")
	}
	if cfg.Introspect && cfg.Queryer == nil {
		return nil, fmt.Errorf("schema builder requires an introspection queryer")
	}
	if !cfg.Introspect && strings.TrimSpace(cfg.Manifest) == "" {
		return nil, fmt.Errorf("schema builder requires introspection or a manifest")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	namer := naming.New(cfg.Naming, logger)

	result := &BuildSchemaResult{}
	if cfg.Introspect {
		dbSchema, err := introspection.IntrospectDatabaseContext(ctx, cfg.Queryer, cfg.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect database: %w", err)
		}
		result.DBSchema = dbSchema
		if result.Catalog, err = introspection.Catalog(dbSchema, namer); err != nil {
			return nil, fmt.Errorf("failed to derive models: %w", err)
		}
	}

	if path := strings.TrimSpace(cfg.Manifest); path != "" {
		m, err := manifest.Load(path)
		if err != nil {
			return nil, err
		}
		if result.Catalog, err = m.Apply(result.Catalog); err != nil {
			return nil, fmt.Errorf("failed to apply manifest %s: %w", path, err)
		}
	}

	result.Store = sqlstore.New(cfg.Executor, cfg.Dialect, result.Catalog)
	gen, err := schemagen.New(result.Catalog, result.Store, schemagen.Options{
		CaseSensitive: cfg.CaseSensitive,
		Mapper:        typemap.New(cfg.ScalarMappings),
		Namer:         namer,
		Logger:        logger,
		Metrics:       cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := gen.Build(); err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}
	if result.GraphQLSchema, err = gen.Schema(); err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}
	return result, nil
}
