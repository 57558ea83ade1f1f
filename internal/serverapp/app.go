// Package serverapp wires configuration, telemetry, the database pool and the
// schema manager into a running HTTP server.
package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"modelql/internal/config"
	"modelql/internal/dbexec"
	"modelql/internal/logging"
	"modelql/internal/observability"
	"modelql/internal/schemarefresh"
)

// App owns runtime resources for the server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	// effectiveDatabase is empty when the schema comes only from a manifest
	// and no database name is configured.
	effectiveDatabase string

	meterProvider  *observability.MeterProvider
	graphqlMetrics *observability.GraphQLMetrics
	tracerProvider *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }
	executor   dbexec.QueryExecutor

	manager      *schemarefresh.Manager
	schemaCancel context.CancelFunc

	handler    http.Handler
	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	effectiveDatabase, err := cfg.Database.EffectiveDatabaseName()
	if err != nil && cfg.Schema.Introspect {
		return nil, fmt.Errorf("failed to resolve effective database configuration: %w", err)
	}

	return &App{
		cfg:               cfg,
		logger:            logger,
		effectiveDatabase: effectiveDatabase,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Reload rebuilds the schema from its sources and swaps it in. The running
// schema keeps serving when the rebuild fails.
func (a *App) Reload(ctx context.Context) error {
	a.stateMu.Lock()
	manager := a.manager
	a.stateMu.Unlock()
	if manager == nil {
		return fmt.Errorf("app is not initialized")
	}
	return manager.RefreshNowContext(ctx)
}
