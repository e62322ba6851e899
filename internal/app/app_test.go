package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/config"
)

const testJWTSecret = "test-secret-key-must-be-at-least-32-chars-long!"

type fakeHTTPServer struct {
	listenErr      error
	listenStarted  chan struct{}
	shutdownCalled bool
	stopCh         chan struct{}
	mu             sync.Mutex
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenStarted != nil {
		close(f.listenStarted)
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	if f.stopCh != nil {
		<-f.stopCh
		return http.ErrServerClosed
	}
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.mu.Lock()
	f.shutdownCalled = true
	f.mu.Unlock()
	if f.stopCh != nil {
		close(f.stopCh)
	}
	return nil
}

func (f *fakeHTTPServer) wasShutdownCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdownCalled
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Mode: mode,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: "file::memory:?cache=shared"},
		},
		Log: config.LogConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: config.AuthConfig{
			JWTSecret:   testJWTSecret,
			TokenExpiry: "24h",
		},
	}
}

func cleanupTestApp(t *testing.T, a *App) {
	t.Helper()
	if a == nil {
		return
	}
	if a.jwtSvc != nil {
		a.jwtSvc.Close()
	}
	if a.db != nil {
		sqlDB, dbErr := a.db.DB()
		if dbErr == nil {
			_ = sqlDB.Close()
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func TestResolveCORSConfig(t *testing.T) {
	tests := []struct {
		name            string
		mode            string
		corsCfg         *config.CORSConfig
		wantOrigins     []string
		wantCredentials bool
		wantMaxAge      string
	}{
		{
			name:        "debug mode uses permissive default when not configured",
			mode:        gin.DebugMode,
			corsCfg:     &config.CORSConfig{},
			wantOrigins: []string{"*"},
			wantMaxAge:  "86400",
		},
		{
			name:        "release mode denies cross-origin when not configured",
			mode:        gin.ReleaseMode,
			corsCfg:     &config.CORSConfig{},
			wantOrigins: []string{},
			wantMaxAge:  "86400",
		},
		{
			name: "release mode uses explicit allowlist",
			mode: gin.ReleaseMode,
			corsCfg: &config.CORSConfig{
				AllowOrigins: []string{"https://admin.example.com"},
			},
			wantOrigins: []string{"https://admin.example.com"},
			wantMaxAge:  "86400",
		},
		{
			name: "config with AllowCredentials true",
			mode: gin.ReleaseMode,
			corsCfg: &config.CORSConfig{
				AllowOrigins:     []string{"https://example.com"},
				AllowCredentials: true,
			},
			wantOrigins:     []string{"https://example.com"},
			wantCredentials: true,
			wantMaxAge:      "86400",
		},
		{
			name: "max_age duration converted to seconds",
			mode: gin.ReleaseMode,
			corsCfg: &config.CORSConfig{
				AllowOrigins: []string{"https://example.com"},
				MaxAge:       "12h",
			},
			wantOrigins: []string{"https://example.com"},
			wantMaxAge:  "43200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCORSConfig(tt.mode, tt.corsCfg)

			if len(got.AllowOrigins) != len(tt.wantOrigins) {
				t.Fatalf("AllowOrigins length = %d, want %d", len(got.AllowOrigins), len(tt.wantOrigins))
			}
			for i := range tt.wantOrigins {
				if got.AllowOrigins[i] != tt.wantOrigins[i] {
					t.Fatalf("AllowOrigins[%d] = %q, want %q", i, got.AllowOrigins[i], tt.wantOrigins[i])
				}
			}
			if got.AllowCredentials != tt.wantCredentials {
				t.Fatalf("AllowCredentials = %v, want %v", got.AllowCredentials, tt.wantCredentials)
			}
			if got.MaxAge != tt.wantMaxAge {
				t.Fatalf("MaxAge = %q, want %q", got.MaxAge, tt.wantMaxAge)
			}
		})
	}
}

func TestResolveCORSConfig_OverridesMethodsAndHeaders(t *testing.T) {
	got := resolveCORSConfig(gin.DebugMode, &config.CORSConfig{
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	})

	if len(got.AllowMethods) != 2 || got.AllowMethods[0] != "GET" || got.AllowMethods[1] != "POST" {
		t.Fatalf("AllowMethods = %v, want [GET POST]", got.AllowMethods)
	}
	if len(got.AllowHeaders) != 2 || got.AllowHeaders[0] != "Authorization" {
		t.Fatalf("AllowHeaders = %v, want [Authorization Content-Type]", got.AllowHeaders)
	}
}

func TestValidateGinMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		wantErr bool
	}{
		{name: "debug mode", mode: gin.DebugMode, wantErr: false},
		{name: "release mode", mode: gin.ReleaseMode, wantErr: false},
		{name: "test mode", mode: gin.TestMode, wantErr: false},
		{name: "invalid mode", mode: "staging", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGinMode(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateGinMode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveWriteTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
		wantSet bool
	}{
		{name: "empty is unset", timeout: "", wantSet: false},
		{name: "whitespace is unset", timeout: "   ", wantSet: false},
		{name: "invalid is unset", timeout: "soon", wantSet: false},
		{name: "negative is unset", timeout: "-5s", wantSet: false},
		{name: "valid duration", timeout: "45s", want: 45 * time.Second, wantSet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, set := effectiveWriteTimeout(tt.timeout)
			if set != tt.wantSet {
				t.Fatalf("effectiveWriteTimeout(%q) set = %v, want %v", tt.timeout, set, tt.wantSet)
			}
			if got != tt.want {
				t.Fatalf("effectiveWriteTimeout(%q) = %v, want %v", tt.timeout, got, tt.want)
			}
		})
	}
}

func TestNew_NilConfig(t *testing.T) {
	app, err := New(nil)
	if err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if app != nil {
		t.Fatalf("New() app = %#v, want nil", app)
	}
}

func TestNew_ReturnsError_WhenDatabaseSetupFails(t *testing.T) {
	cfg := testConfig(gin.TestMode)
	cfg.Database = config.DatabaseConfig{Driver: "unsupported"}

	app, err := New(cfg)
	if err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if app != nil {
		t.Fatalf("New() app = %#v, want nil", app)
	}
	if !strings.Contains(err.Error(), "setup database") {
		t.Fatalf("New() error = %q, want contains %q", err.Error(), "setup database")
	}
}

func TestNew_ReturnsError_WhenTokenExpiryInvalid(t *testing.T) {
	cfg := testConfig(gin.TestMode)
	cfg.Auth.TokenExpiry = "sometime"

	app, err := New(cfg)
	if err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if app != nil {
		t.Fatalf("New() app = %#v, want nil", app)
	}
	if !strings.Contains(err.Error(), "token_expiry") {
		t.Fatalf("New() error = %q, want contains %q", err.Error(), "token_expiry")
	}
}

func TestNew_ReturnsError_WhenModeInvalid(t *testing.T) {
	cfg := testConfig(gin.TestMode)
	cfg.Server.Mode = "staging"

	app, err := New(cfg)
	if err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if app != nil {
		t.Fatalf("New() app = %#v, want nil", app)
	}
}

func TestNew_WiresRoutesAndTokenService(t *testing.T) {
	app, err := New(testConfig(gin.TestMode))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	if app.jwtSvc == nil {
		t.Fatal("expected jwtSvc to be non-nil")
	}

	registered := make(map[string]bool)
	for _, ri := range app.engine.Routes() {
		registered[ri.Method+":"+ri.Path] = true
	}

	expected := []string{
		"GET:/health",
		"POST:/api/v1/auth/login",
		"POST:/api/v1/auth/register",
		"GET:/api/v1/products",
		"POST:/api/v1/products",
		"GET:/api/v1/products/:id",
		"PUT:/api/v1/products/:id",
		"DELETE:/api/v1/products/:id",
		"POST:/api/v1/products/:id/reviews",
		"DELETE:/api/v1/products/:id/reviews/:reviewID",
	}
	for _, key := range expected {
		if !registered[key] {
			t.Errorf("expected route %s to be registered", key)
		}
	}
}

func TestNew_AnonymousRequestsAllowed(t *testing.T) {
	// Debug mode runs auto migration, so the API is usable end to end.
	cfg := testConfig(gin.DebugMode)
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "anon.db")

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	// No Authorization header; identity falls back to anonymous and the
	// request still succeeds.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	app.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/products without token: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAutoMigrate_CreatesTablesInDebug(t *testing.T) {
	cfg := testConfig(gin.DebugMode)
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "debug-migrate.db")

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	for _, table := range []string{"users", "products", "reviews"} {
		var count int
		if err := app.db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error; err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("expected %s table to exist in debug mode, count=%d", table, count)
		}
	}
}

func TestAutoMigrate_DoesNotRunOutsideDebug(t *testing.T) {
	cfg := testConfig(gin.TestMode)
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "no-migrate.db")

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	var userTableCount int
	if err := app.db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='users'").Scan(&userTableCount).Error; err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if userTableCount != 0 {
		t.Fatalf("expected users table to be absent outside debug mode, count=%d", userTableCount)
	}
}

func TestRun_ReturnsError_WhenListenFails(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	listenErr := errors.New("listen failed")
	server := &fakeHTTPServer{listenErr: listenErr}
	newHTTPServer = func(string, http.Handler) httpServer {
		return server
	}
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}

	a := &App{
		engine: gin.New(),
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}

	err := a.Run()
	if err == nil {
		t.Fatal("Run() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "server error") {
		t.Fatalf("Run() error = %q, want contains %q", err.Error(), "server error")
	}
	if !errors.Is(err, listenErr) {
		t.Fatalf("Run() error = %v, want wraps %v", err, listenErr)
	}
}

func TestRun_ShutdownSignal_ClosesDatabase(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}

	server := &fakeHTTPServer{listenStarted: make(chan struct{}), stopCh: make(chan struct{})}
	newHTTPServer = func(string, http.Handler) httpServer {
		return server
	}

	ctx, cancel := context.WithCancel(context.Background())
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return ctx, cancel
	}

	a := &App{
		engine: gin.New(),
		db:     db,
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	select {
	case <-server.listenStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start listening in time")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return in time after shutdown signal")
	}

	if !server.wasShutdownCalled() {
		t.Fatal("expected server Shutdown() to be called")
	}

	if pingErr := sqlDB.Ping(); pingErr == nil {
		t.Fatal("expected database connection to be closed, but Ping() succeeded")
	}
}
