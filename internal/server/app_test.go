package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/config"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:               "127.0.0.1",
			Port:               8000,
			ShutdownTimeout:    time.Second,
			MaxBodySize:        1 << 20,
			CORSAllowedOrigins: []string{"*"},
			LegacyRoutes:       true,
		},
		Database: config.DatabaseConfig{
			Driver:          driver,
			AutoMigrate:     true,
			JournalMode:     "WAL",
			BusyTimeout:     5000,
			SynchronousMode: "NORMAL",
		},
		Auth: config.AuthConfig{
			TokenMode:        config.TokenModeOpaque,
			TokenTTL:         time.Hour,
			JWTIssuer:        "minimarket-test",
			PasswordHasher:   config.HasherPBKDF2,
			PBKDF2Iterations: config.MinPBKDF2Iterations,
		},
		Cart: config.CartConfig{
			LockMode:       config.LockModeAuto,
			LockTTL:        5 * time.Second,
			LockRetries:    100,
			LockRetryDelay: time.Millisecond,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	require.NoError(t, cfg.Validate())

	app, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })
	return app
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

// shoppingScenario registers a user, fills a cart and checks the totals.
func shoppingScenario(t *testing.T, h http.Handler) {
	t.Helper()
	creds := map[string]string{"username": "alice", "password": "secret1"}

	code, _ := call(t, h, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusOK, code)

	code, login := call(t, h, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, code)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	code, _ = call(t, h, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 1, "quantity": 3})
	require.Equal(t, http.StatusOK, code)
	code, cart := call(t, h, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 5, "quantity": 4})
	require.Equal(t, http.StatusOK, code)

	// 5 x 2.49 + 4 x 0.99
	require.InDelta(t, 16.41, cart["total"], 1e-9)
	require.Len(t, cart["items"], 2)

	code, cart = call(t, h, http.MethodDelete, "/api/cart/items/5", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.InDelta(t, 12.45, cart["total"], 1e-9)

	code, _ = call(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
}

func TestApp_MemoryBackend(t *testing.T) {
	app := newApp(t, testConfig(config.DriverMemory))
	shoppingScenario(t, app.Handler())
}

func TestApp_SQLiteBackend(t *testing.T) {
	cfg := testConfig(config.DriverSQLite)
	cfg.Database.Path = filepath.Join(t.TempDir(), "minimarket.db")

	app := newApp(t, cfg)
	shoppingScenario(t, app.Handler())

	user, err := app.Users.GetByUsername(context.Background(), "ALICE")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
}

func TestApp_JWTSessions(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Auth.TokenMode = config.TokenModeJWT
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"

	app := newApp(t, cfg)
	shoppingScenario(t, app.Handler())
}

func TestApp_WithoutLocking(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Cart.LockMode = config.LockModeNone
	cfg.Metrics.Enabled = false
	cfg.Server.LegacyRoutes = false

	app := newApp(t, cfg)
	require.Nil(t, app.Metrics)
	shoppingScenario(t, app.Handler())

	code, _ := call(t, app.Handler(), http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, app.Handler(), http.MethodPost, "/api/cart/legacy", "", map[string]int{"product_id": 1, "quantity": 1})
	require.Equal(t, http.StatusNotFound, code)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Server.Port = 0

	app, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOpenRepositories_UnknownDriver(t *testing.T) {
	_, err := OpenRepositories(context.Background(), config.DatabaseConfig{Driver: "mongo"}, zerolog.Nop())
	require.Error(t, err)
}
