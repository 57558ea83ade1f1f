// Package schemarefresh builds schema snapshots and swaps them in when the
// model sources change.
package schemarefresh

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"modelql/internal/dbexec"
	"modelql/internal/logging"
	"modelql/internal/middleware"
	"modelql/internal/model"
	"modelql/internal/naming"
	"modelql/internal/observability"
	"modelql/internal/sqlutil"
	"modelql/internal/store"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Snapshot contains an immutable view of the current schema state.
type Snapshot struct {
	Schema      *graphql.Schema
	Handler     http.Handler
	Catalog     *model.Catalog
	Source      store.Source
	BuiltAt     time.Time
	Fingerprint string
	// Components holds the per-source hashes behind Fingerprint.
	Components map[string]string
}

// Config controls schema building and refresh behavior.
type Config struct {
	DB             *sql.DB
	Executor       dbexec.QueryExecutor
	Dialect        sqlutil.Dialect
	DatabaseName   string
	Introspect     bool
	Manifest       string
	Naming         naming.Config
	ScalarMappings map[string]string
	CaseSensitive  bool
	// Batching wraps every snapshot handler with a request-scoped
	// association loader.
	Batching    bool
	GraphiQL    bool
	Logger      *logging.Logger
	Metrics     *observability.GraphQLMetrics
	MinInterval time.Duration
	MaxInterval time.Duration
}

// Manager maintains and refreshes schema snapshots.
type Manager struct {
	cfg         Config
	db          *sql.DB
	executor    dbexec.QueryExecutor
	logger      *logging.Logger
	minInterval time.Duration
	maxInterval time.Duration

	// refreshMu serializes rebuilds triggered by the poller, signals and
	// the admin endpoint.
	refreshMu sync.Mutex
	active    atomic.Pointer[Snapshot]
	wg        sync.WaitGroup
}

type fingerprintComponent struct {
	name  string
	query string
}

// Structural components cover only metadata that changes the derived models.
var structuralComponents = []fingerprintComponent{
	{
		name: "columns",
		query: `
			SELECT
				TABLE_NAME,
				COLUMN_NAME,
				CAST(ORDINAL_POSITION AS CHAR),
				DATA_TYPE,
				COLUMN_TYPE,
				IS_NULLABLE,
				COLUMN_KEY
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = ?
			ORDER BY TABLE_NAME, ORDINAL_POSITION, COLUMN_NAME
		`,
	},
	{
		name: "foreign_keys",
		query: `
			SELECT
				TABLE_NAME,
				CONSTRAINT_NAME,
				COLUMN_NAME,
				COALESCE(REFERENCED_TABLE_NAME, ''),
				COALESCE(REFERENCED_COLUMN_NAME, ''),
				CAST(ORDINAL_POSITION AS CHAR)
			FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = ?
				AND REFERENCED_TABLE_NAME IS NOT NULL
			ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION
		`,
	},
}

// NewManager builds the initial schema snapshot and returns a manager.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}
	if cfg.Executor == nil {
		if cfg.DB == nil {
			return nil, fmt.Errorf("schema refresh manager requires a database handle")
		}
		cfg.Executor = dbexec.NewStandardExecutor(cfg.DB)
	}
	if cfg.Introspect && cfg.DB == nil {
		return nil, fmt.Errorf("introspection requires a database handle")
	}

	minInterval := cfg.MinInterval
	maxInterval := cfg.MaxInterval
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}
	if maxInterval <= 0 {
		maxInterval = 5 * time.Minute
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}

	m := &Manager{
		cfg:         cfg,
		db:          cfg.DB,
		executor:    cfg.Executor,
		logger:      cfg.Logger.WithFields(slog.String("component", "schema_refresh")),
		minInterval: minInterval,
		maxInterval: maxInterval,
	}

	if err := m.rebuild(ctx, "startup"); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins the background refresh loop.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(ctx)
	}()
}

// ServeHTTP dispatches to the handler of the active snapshot.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.Handler().ServeHTTP(w, r)
}

// Handler returns the HTTP handler for the current schema snapshot.
func (m *Manager) Handler() http.Handler {
	snapshot := m.CurrentSnapshot()
	if snapshot == nil || snapshot.Handler == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
		})
	}
	return snapshot.Handler
}

// CurrentSnapshot returns the active schema snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	return m.active.Load()
}

// RefreshNowContext forces a schema rebuild and swap. The previous snapshot
// stays active when the rebuild fails.
func (m *Manager) RefreshNowContext(ctx context.Context) error {
	return m.rebuild(ctx, "manual")
}

// Wait blocks until the refresh loop exits or the context is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	interval := m.minInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("schema refresh stopped")
			return
		case <-timer.C:
			m.refreshOnce(ctx, &interval)
			timer.Reset(interval)
		}
	}
}

func (m *Manager) refreshOnce(ctx context.Context, interval *time.Duration) {
	fingerprint, components, err := m.computeFingerprint(ctx)
	if err != nil {
		m.logger.Warn("schema fingerprint check failed", slog.String("error", err.Error()))
		*interval = m.minInterval
		return
	}

	current := m.CurrentSnapshot()
	if current != nil && fingerprint == current.Fingerprint {
		*interval = nextInterval(*interval, m.minInterval, m.maxInterval)
		return
	}

	var previous map[string]string
	if current != nil {
		previous = current.Components
	}
	m.logger.Info("schema change detected, rebuilding",
		slog.String("fingerprint", fingerprint),
		slog.Any("changed_components", changedComponents(previous, components)),
	)
	*interval = m.minInterval
	if err := m.rebuild(ctx, "poll"); err != nil {
		m.logger.Error("failed to rebuild schema", slog.String("error", err.Error()))
	}
}

func (m *Manager) rebuild(ctx context.Context, trigger string) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()
	snapshot, err := m.buildSnapshot(ctx)
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordSchemaBuild(ctx, time.Since(start), err == nil)
	}
	if err != nil {
		return fmt.Errorf("%s schema build failed: %w", trigger, err)
	}
	m.active.Store(snapshot)
	m.logger.Info("schema snapshot active",
		slog.String("trigger", trigger),
		slog.String("fingerprint", snapshot.Fingerprint),
		slog.Int("models", len(snapshot.Catalog.All())),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (m *Manager) buildSnapshot(ctx context.Context) (*Snapshot, error) {
	fingerprint, components, err := m.computeFingerprint(ctx)
	if err != nil {
		m.logger.Warn("failed to compute schema fingerprint", slog.String("error", err.Error()))
	}

	cfg := BuildSchemaConfig{
		Executor:       m.executor,
		Dialect:        m.cfg.Dialect,
		DatabaseName:   m.cfg.DatabaseName,
		Introspect:     m.cfg.Introspect,
		Manifest:       m.cfg.Manifest,
		Naming:         m.cfg.Naming,
		ScalarMappings: m.cfg.ScalarMappings,
		CaseSensitive:  m.cfg.CaseSensitive,
		Logger:         m.cfg.Logger.Component("schemagen"),
		Metrics:        m.cfg.Metrics,
	}
	if m.db != nil {
		cfg.Queryer = m.db
	}
	result, err := BuildSchema(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for _, d := range result.Catalog.All() {
		m.logger.Debug("model loaded",
			slog.String("model", d.Name),
			slog.Int("columns", len(d.Columns)),
			slog.Int("associations", len(d.Associations)),
		)
	}

	var h http.Handler = handler.New(&handler.Config{
		Schema:     &result.GraphQLSchema,
		Pretty:     true,
		GraphiQL:   m.cfg.GraphiQL,
		Playground: false,
	})
	h = middleware.GraphQLTracingMiddleware()(h)
	if m.cfg.Batching {
		h = middleware.BatchingMiddleware(result.Store)(h)
	}

	return &Snapshot{
		Schema:      &result.GraphQLSchema,
		Handler:     h,
		Catalog:     result.Catalog,
		Source:      result.Store,
		BuiltAt:     time.Now(),
		Fingerprint: fingerprint,
		Components:  components,
	}, nil
}

// computeFingerprint hashes every model source: the manifest bytes and, when
// introspecting, the structural metadata of the database.
func (m *Manager) computeFingerprint(ctx context.Context) (string, map[string]string, error) {
	ctx, span := otel.Tracer("modelql/introspection").Start(ctx, "introspection.compute_fingerprint")
	defer span.End()

	components := make(map[string]string)
	if path := strings.TrimSpace(m.cfg.Manifest); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			span.RecordError(err)
			return "", nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		sum := sha256.Sum256(data)
		components["manifest"] = hex.EncodeToString(sum[:])
	}

	if m.cfg.Introspect && m.db != nil {
		for _, component := range structuralComponents {
			hash, err := hashComponentQuery(ctx, m.db, component.query, m.cfg.DatabaseName)
			if err != nil {
				span.RecordError(err)
				return "", nil, fmt.Errorf("failed to hash %s component: %w", component.name, err)
			}
			components[component.name] = hash
		}
	}

	span.SetAttributes(
		attribute.String("db.schema", m.cfg.DatabaseName),
		attribute.Int("schema.fingerprint_components", len(components)),
	)
	return combineComponentHashes(components), components, nil
}

type rowQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func hashComponentQuery(ctx context.Context, queryer rowQueryer, query string, args ...any) (string, error) {
	rows, err := queryer.QueryContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}
	values := make([]sql.NullString, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	hash := sha256.New()
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return "", err
		}
		// Length-prefixed cells avoid ambiguity from delimiter collisions.
		for _, value := range values {
			_, _ = fmt.Fprintf(hash, "%d:%s|", len(value.String), value.String)
		}
		_, _ = hash.Write([]byte{'\n'})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func nextInterval(current, minInterval, maxInterval time.Duration) time.Duration {
	if current < minInterval {
		return minInterval
	}
	next := current + current/2
	if next > maxInterval {
		return maxInterval
	}
	return next
}

func combineComponentHashes(components map[string]string) string {
	if len(components) == 0 {
		return ""
	}
	keys := make([]string, 0, len(components))
	for key := range components {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hash := sha256.New()
	for _, key := range keys {
		_, _ = fmt.Fprintf(hash, "%s=%s\n", key, components[key])
	}
	return hex.EncodeToString(hash.Sum(nil))
}

func changedComponents(previous, current map[string]string) []string {
	keys := make(map[string]struct{}, len(previous)+len(current))
	for key := range previous {
		keys[key] = struct{}{}
	}
	for key := range current {
		keys[key] = struct{}{}
	}
	changed := make([]string, 0, len(keys))
	for key := range keys {
		if previous[key] != current[key] {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return changed
}
