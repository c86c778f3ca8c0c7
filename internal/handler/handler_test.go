package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/auth"
	cachemem "github.com/prn-tf/minimarket/internal/cache/memory"
	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/lock"
	"github.com/prn-tf/minimarket/internal/metrics"
	"github.com/prn-tf/minimarket/internal/repository"
	"github.com/prn-tf/minimarket/internal/repository/memory"
	"github.com/prn-tf/minimarket/internal/service"
)

type testServer struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, health func() error) *testServer {
	t.Helper()

	products := domain.SeedProducts()
	products = append(products, &domain.Product{
		ID: 7, Name: "Seasonal Plums", Unit: "kg", Category: "fruits", IsAvailable: false,
	})
	repos := &repository.Repositories{
		User:    memory.NewUserRepository(),
		Product: memory.NewProductRepository(products),
		Offer:   memory.NewOfferRepository(domain.SeedOffers()),
		Cart:    memory.NewCartRepository(),
	}

	cache := cachemem.NewCache()
	locker := lock.NewMemoryLocker()
	t.Cleanup(cache.Stop)
	t.Cleanup(locker.Stop)

	logger := zerolog.Nop()
	m := metrics.New()

	users := service.NewUserService(service.UserServiceConfig{
		UserRepo: repos.User,
		CartRepo: repos.Cart,
		Hasher:   auth.NewPBKDF2Hasher(config.MinPBKDF2Iterations),
		Tokens:   auth.NewOpaqueTokens(cache, time.Hour),
		Metrics:  m,
		Logger:   logger,
	})
	cart := service.NewCartService(service.CartServiceConfig{
		CartRepo:    repos.Cart,
		ProductRepo: repos.Product,
		Locker:      locker,
		LockPolicy:  lock.RetryPolicy{TTL: 5 * time.Second, MaxRetries: 100, RetryDelay: time.Millisecond},
		Metrics:     m,
		Logger:      logger,
	})

	var check func(ctx context.Context) error
	if health != nil {
		check = func(context.Context) error { return health() }
	}

	h := NewRouter(RouterConfig{
		AuthHandler:        NewAuthHandler(users, 1<<20, logger),
		CatalogHandler:     NewCatalogHandler(service.NewCatalogService(repos.Product, repos.Offer, logger), logger),
		CartHandler:        NewCartHandler(cart, 1<<20, true, logger),
		ContactHandler:     NewContactHandler(service.NewContactService(service.NewLogNotifier(logger), logger), 1<<20, logger),
		AuthMiddleware:     auth.Middleware(users, zerolog.Nop()),
		HealthCheck:        check,
		Metrics:            m,
		MetricsPath:        "/metrics",
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		Logger:             logger,
	})
	return &testServer{handler: h, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "secret1"}
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, resp.Token, resp.AccessToken)
	require.Equal(t, "bearer", resp.TokenType)
	return resp.Token
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	s = newTestServer(t, func() error { return errors.New("database is closed") })
	rec = s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "0b6f4d2c-7b2e-4c57-9a4e-1f4a0d3b2c10")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, "0b6f4d2c-7b2e-4c57-9a4e-1f4a0d3b2c10", rec.Header().Get(RequestIDHeader))
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 7)

	rec = s.do(t, http.MethodGet, "/api/products?category=FRUITS&available_only=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	require.Equal(t, "Fresh Red Apples", products[0]["name"])
	require.Contains(t, rec.Body.String(), `"price":2.49`)

	rec = s.do(t, http.MethodGet, "/api/products?available_only=maybe", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products/2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Whole Milk 1L"`)

	rec = s.do(t, http.MethodGet, "/api/products/404", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Product not found", detail(t, rec))

	rec = s.do(t, http.MethodGet, "/api/products/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/offers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"old_price":12.50`)
	require.Contains(t, rec.Body.String(), `"new_price":9.99`)

	rec = s.do(t, http.MethodGet, "/api/offers/9", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Offer not found", detail(t, rec))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	creds := map[string]string{"username": "alice", "password": "secret1"}

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"message":"User registered successfully"`)

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "ALICE", "password": "secret1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Username already exists", detail(t, rec))

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid username or password", detail(t, rec))
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.Equal(t, "alice", login.Username)

	rec = s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Not authenticated", detail(t, rec))

	rec = s.do(t, http.MethodPost, "/api/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"revoked":true`)

	rec = s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "al", "password": "secret1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid JSON body", detail(t, rec))
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "alice")

	rec := s.do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"items":[]`)
	require.Contains(t, rec.Body.String(), `"total":0.00`)

	rec = s.do(t, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 1, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"quantity":5`)
	require.Contains(t, rec.Body.String(), `"line_total":12.45`)
	require.Contains(t, rec.Body.String(), `"total":12.45`)

	rec = s.do(t, http.MethodPatch, "/api/cart/items/1?quantity=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":4.98`)

	rec = s.do(t, http.MethodPatch, "/api/cart/items/1?quantity=0", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/cart/items/1", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "quantity is required", detail(t, rec))

	rec = s.do(t, http.MethodPatch, "/api/cart/items/3?quantity=1", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Item not found in cart", detail(t, rec))

	rec = s.do(t, http.MethodDelete, "/api/cart/items/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"items":[]`)

	rec = s.do(t, http.MethodDelete, "/api/cart/items/1", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartErrors(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "alice")

	rec := s.do(t, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cart", "not-a-real-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 99, "quantity": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 7, "quantity": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Product 'Seasonal Plums' is currently not available", detail(t, rec))

	rec = s.do(t, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 1, "quantity": 1000})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/items", token, map[string]int{"product_id": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "quantity is required", detail(t, rec))
}

func TestCartIsolation(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.login(t, "alice")
	bob := s.login(t, "bob")

	rec := s.do(t, http.MethodPost, "/api/cart/items", alice, map[string]int{"product_id": 2, "quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cart", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"bob"`)
	require.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestLegacyRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/cart", token, map[string]int{"product_id": 3, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":1.99`)

	rec = s.do(t, http.MethodPost, "/api/cart/legacy", token, map[string]int{"product_id": 3, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `"product_name":"White Bread"`)
	require.Contains(t, body, `"quantity":2`)
	require.Contains(t, body, `"unit_price":1.99`)
	require.Contains(t, body, `"total_price":3.98`)

	rec = s.do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"quantity":3`)
	require.Contains(t, rec.Body.String(), `"total":5.97`)
}

func TestContact(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "message": "Do you deliver on Sundays?",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Thank you for contacting Mini Market.")

	rec = s.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Ann", "email": "not-an-email", "message": "hi",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	rec = s.do(t, http.MethodDelete, "/api/products", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/products", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "minimarket_http_requests_total")
	require.Contains(t, rec.Body.String(), `route="/api/products"`)
}
