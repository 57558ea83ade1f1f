package serverapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"modelql/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshNowContext(context.Context) error {
	f.calls++
	return f.err
}

func TestBuildRouter_AdminRouteDisabledReturnsNotFound(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			HealthCheckTimeout:  time.Second,
			SchemaReloadEnabled: false,
		},
	}
	graphqlHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux := buildRouter(cfg, testLogger(), nil, graphqlHandler, adminHandler, false)

	req := httptest.NewRequest(http.MethodPost, "/admin/reload-schema", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestBuildRouter_AdminRouteEnabledInvokesHandler(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			HealthCheckTimeout:  time.Second,
			SchemaReloadEnabled: true,
		},
	}
	graphqlHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux := buildRouter(cfg, testLogger(), nil, graphqlHandler, adminHandler, false)

	req := httptest.NewRequest(http.MethodPost, "/admin/reload-schema", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestBuildRouter_Routes(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{HealthCheckTimeout: time.Second}}
	graphqlHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux := buildRouter(cfg, testLogger(), nil, graphqlHandler, nil, true)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{name: "graphql", path: "/graphql", wantCode: http.StatusTeapot},
		{name: "root redirects", path: "/", wantCode: http.StatusFound},
		{name: "unknown", path: "/nope", wantCode: http.StatusNotFound},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK},
		{name: "health without database", path: "/health", wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
		wantBody string
	}{
		{name: "healthy", wantCode: http.StatusOK, wantBody: `{"status":"healthy","database":"ok"}`},
		{name: "ping fails", pingErr: errors.New("connection refused"), wantCode: http.StatusServiceUnavailable, wantBody: `{"status":"unhealthy","database":"failed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer db.Close()
			ping := mock.ExpectPing()
			if tt.pingErr != nil {
				ping.WillReturnError(tt.pingErr)
			}

			rec := httptest.NewRecorder()
			healthHandler(db, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBuildAdminHandler_ReloadsSchema(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		err       error
		wantCode  int
		wantCalls int
	}{
		{name: "post reloads", method: http.MethodPost, wantCode: http.StatusOK, wantCalls: 1},
		{name: "get rejected", method: http.MethodGet, wantCode: http.StatusMethodNotAllowed, wantCalls: 0},
		{name: "reload failure", method: http.MethodPost, err: errors.New("bad manifest"), wantCode: http.StatusInternalServerError, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &fakeRefresher{err: tt.err}
			handler := buildAdminHandler(testLogger(), refresher)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/admin/reload-schema", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCalls, refresher.calls)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotContains(t, rec.Body.String(), "bad manifest")
		})
	}
}

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("not yet"))
	mock.ExpectPing()

	cfg := &config.Config{Database: config.DatabaseConfig{
		ConnectionTimeout:       time.Second,
		ConnectionRetryInterval: time.Millisecond,
	}}
	require.NoError(t, waitForDatabase(context.Background(), cfg, testLogger(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_GivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("refused"))

	cfg := &config.Config{Database: config.DatabaseConfig{
		ConnectionTimeout:       time.Millisecond,
		ConnectionRetryInterval: 10 * time.Millisecond,
	}}
	err = waitForDatabase(context.Background(), cfg, testLogger(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not available")
}
