package serverapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"modelql/internal/config"
	"modelql/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "info", Format: "text"})
}

func TestWaitForStop_SignalWins(t *testing.T) {
	app := &App{logger: testLogger()}
	stop := make(chan os.Signal, 1)
	serverErrors := make(chan error, 1)

	stop <- syscall.SIGTERM

	reason, err := app.WaitForStop(stop, serverErrors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != "signal" {
		t.Fatalf("expected reason=signal, got %q", reason)
	}
}

func TestWaitForStop_ServerErrorWins(t *testing.T) {
	app := &App{logger: testLogger()}
	stop := make(chan os.Signal, 1)
	serverErrors := make(chan error, 1)
	serverErrors <- errors.New("boom")

	reason, err := app.WaitForStop(stop, serverErrors)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if reason != "server_error" {
		t.Fatalf("expected reason=server_error, got %q", reason)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	app := &App{logger: testLogger()}
	var calls int32
	app.cleanup.push("test", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown failed: %v", err)
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected cleanup to run once, ran %d times", got)
	}
}

func TestStart_BeforeInit_Fails(t *testing.T) {
	app := &App{logger: testLogger()}
	if _, err := app.Start(); err == nil {
		t.Fatalf("expected start to fail before init")
	}
}

func TestStartAndShutdown_HappyPath(t *testing.T) {
	app := &App{
		cfg: &config.Config{
			Server: config.ServerConfig{},
		},
		logger:     testLogger(),
		serverAddr: "127.0.0.1:0",
		srv: &http.Server{
			Addr:    "127.0.0.1:0",
			Handler: http.NewServeMux(),
		},
		initialized: true,
	}
	app.cleanup.push("HTTP server", func(ctx context.Context) error {
		return app.srv.Shutdown(ctx)
	})

	if _, err := app.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

func TestInitFailure_DoesNotMarkInitialized(t *testing.T) {
	appCfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:   "mysql",
			Host:     "127.0.0.1",
			Port:     1,
			User:     "root",
			Password: "invalid",
			Database: "test",
			Pool: config.PoolConfig{
				MaxOpen:     1,
				MaxIdle:     1,
				MaxLifetime: time.Second,
			},
			ConnectionTimeout:       0,
			ConnectionRetryInterval: 10 * time.Millisecond,
		},
		Server: config.ServerConfig{
			Port:                     18089,
			SchemaRefreshMinInterval: time.Second,
			ReadTimeout:              time.Second,
			WriteTimeout:             time.Second,
			IdleTimeout:              time.Second,
			ShutdownTimeout:          time.Second,
			HealthCheckTimeout:       time.Second,
		},
		Schema: config.SchemaConfig{
			Introspect: true,
		},
		Observability: config.ObservabilityConfig{
			ServiceName:    "modelql",
			ServiceVersion: "test",
			Environment:    "test",
			Logging: config.LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}

	app, err := New(appCfg, testLogger())
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if err := app.Init(context.Background()); err == nil {
		t.Fatalf("expected init to fail with unreachable database")
	}

	app.stateMu.Lock()
	initialized := app.initialized
	app.stateMu.Unlock()
	if initialized {
		t.Fatalf("app should not be marked initialized after failed Init")
	}
}

func TestInit_ManifestOverSQLite(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(testManifest), 0o600))

	appCfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:           "sqlite",
			ConnectionString: ":memory:",
			Pool:             config.PoolConfig{MaxOpen: 4, MaxIdle: 1, MaxLifetime: time.Minute},
		},
		Server: config.ServerConfig{
			Port:               0,
			BatchingEnabled:    true,
			ShutdownTimeout:    time.Second,
			HealthCheckTimeout: time.Second,
		},
		Schema: config.SchemaConfig{Manifest: manifestPath},
		Observability: config.ObservabilityConfig{
			Logging: config.LoggingConfig{Level: "error", Format: "text"},
		},
	}

	app, err := New(appCfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	assert.Equal(t, 1, app.db.Stats().MaxOpenConnections)
	require.NotNil(t, app.manager.CurrentSnapshot())
	require.NoError(t, app.Reload(context.Background()))

	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, rec.Body.String())
}

func TestReload_BeforeInitFails(t *testing.T) {
	app := &App{logger: testLogger()}
	assert.Error(t, app.Reload(context.Background()))
}

func TestWatchReload_StopsOnClosedChannel(t *testing.T) {
	app := &App{logger: testLogger(), cfg: &config.Config{}}
	reload := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		app.WatchReload(context.Background(), reload)
		close(done)
	}()
	close(reload)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("WatchReload did not return after the channel closed")
	}
}

func TestCleanupStack_RunsAllAndJoinsErrors(t *testing.T) {
	var order []string
	stack := cleanupStack{}
	stack.push("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	stack.push("second", func(context.Context) error {
		order = append(order, "second")
		return errors.New("boom")
	})

	err := stack.run(context.Background(), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second: boom")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, stack.run(context.Background(), nil))
}

const testManifest = `
models:
  - name: firsts
    display_name: First
    primary_key: [id]
    columns:
      id: {type: integer}
      name: {type: string}
`
