package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/auth"
	cachemem "github.com/prn-tf/minimarket/internal/cache/memory"
	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/lock"
	"github.com/prn-tf/minimarket/internal/metrics"
	"github.com/prn-tf/minimarket/internal/repository"
	"github.com/prn-tf/minimarket/internal/repository/memory"
)

// plainHasher keeps tests fast; it is not a real password hash.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain$" + password, nil }

func (plainHasher) Verify(encoded, password string) (bool, error) {
	if !strings.HasPrefix(encoded, "plain$") {
		return false, auth.ErrMalformedHash
	}
	return encoded == "plain$"+password, nil
}

type testEnv struct {
	repos   *repository.Repositories
	users   *UserService
	cart    *CartService
	catalog *CatalogService
	locker  *lock.MemoryLocker
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repos := memory.NewRepositories()
	cache := cachemem.NewCache()
	locker := lock.NewMemoryLocker()
	t.Cleanup(cache.Stop)
	t.Cleanup(locker.Stop)

	m := metrics.New()
	logger := zerolog.Nop()

	return &testEnv{
		repos:  repos,
		locker: locker,
		users: NewUserService(UserServiceConfig{
			UserRepo: repos.User,
			CartRepo: repos.Cart,
			Hasher:   plainHasher{},
			Tokens:   auth.NewOpaqueTokens(cache, time.Hour),
			Metrics:  m,
			Logger:   logger,
		}),
		cart: NewCartService(CartServiceConfig{
			CartRepo:    repos.Cart,
			ProductRepo: repos.Product,
			Locker:      locker,
			LockPolicy:  lock.RetryPolicy{TTL: 5 * time.Second, MaxRetries: 500, RetryDelay: time.Millisecond},
			Metrics:     m,
			Logger:      logger,
		}),
		catalog: NewCatalogService(repos.Product, repos.Offer, logger),
		metrics: m,
	}
}

func (e *testEnv) register(t *testing.T, username string) domain.Identity {
	t.Helper()
	user, err := e.users.Register(context.Background(), RegisterInput{Username: username, Password: "secret1"})
	require.NoError(t, err)
	return user.Identity()
}
