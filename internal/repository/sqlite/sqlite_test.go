package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "minimarket.db"))
	db, err := NewDB(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	version, err := db.Migrate(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, version)
	return db
}

func createUser(t *testing.T, repos *repository.Repositories, name string) *domain.User {
	t.Helper()
	user := domain.NewUser(name, "hash")
	require.NoError(t, repos.User.Create(context.Background(), user))
	return user
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	version, err := db.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, version)

	products, err := NewProductRepository(db).List(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 6)
}

func TestVersion_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, DefaultConfig(filepath.Join(t.TempDir(), "nested", "fresh.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	version, err := db.Version(ctx)
	require.NoError(t, err)
	require.Zero(t, version)
}

func TestUserRepository_CaseInsensitiveUnique(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	ctx := context.Background()

	alice := createUser(t, repos, "Alice")
	require.NotZero(t, alice.ID)

	err := repos.User.Create(ctx, domain.NewUser("alice", "other"))
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	got, err := repos.User.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, "Alice", got.Username)

	_, err = repos.User.GetByID(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_CaseInsensitiveUniqueNonASCII(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	ctx := context.Background()

	emile := createUser(t, repos, "émile")

	err := repos.User.Create(ctx, domain.NewUser("Émile", "other"))
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	got, err := repos.User.GetByUsername(ctx, "ÉMILE")
	require.NoError(t, err)
	require.Equal(t, emile.ID, got.ID)
	require.Equal(t, "émile", got.Username)

	users, err := repos.User.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestCatalog(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	ctx := context.Background()

	apples, err := repos.Product.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Fresh Red Apples", apples.Name)
	require.Equal(t, "2.49", apples.Price.StringFixed(2))
	require.True(t, apples.IsAvailable)

	_, err = repos.Product.GetByID(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)

	dairy, err := repos.Product.List(ctx, domain.ProductFilter{Category: "DAIRY"})
	require.NoError(t, err)
	require.Len(t, dairy, 2)

	some, err := repos.Product.ListByIDs(ctx, []int64{6, 1, 42})
	require.NoError(t, err)
	require.Len(t, some, 2)

	offers, err := repos.Offer.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, offers, 3)
	require.Equal(t, "9.99", offers[1].NewPrice.StringFixed(2))
	require.Nil(t, offers[0].ProductID)
}

func TestCartRepository_AddSetRemove(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	ctx := context.Background()
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")
	now := time.Now().UTC()

	q, err := repos.Cart.AddQuantity(ctx, alice.ID, 1, 2, now)
	require.NoError(t, err)
	require.Equal(t, 2, q)

	q, err = repos.Cart.AddQuantity(ctx, alice.ID, 1, 3, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 5, q)

	_, err = repos.Cart.AddQuantity(ctx, alice.ID, 3, 1, now)
	require.NoError(t, err)

	lines, err := repos.Cart.Lines(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, int64(1), lines[0].ProductID)
	require.Equal(t, 5, lines[0].Quantity)

	bobLines, err := repos.Cart.Lines(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, bobLines)

	require.NoError(t, repos.Cart.SetQuantity(ctx, alice.ID, 3, 7, now))
	require.ErrorIs(t, repos.Cart.SetQuantity(ctx, bob.ID, 3, 7, now), repository.ErrNotFound)

	later := now.Add(time.Minute)
	require.NoError(t, repos.Cart.RemoveLine(ctx, alice.ID, 1, later))
	require.ErrorIs(t, repos.Cart.RemoveLine(ctx, alice.ID, 1, later), repository.ErrNotFound)

	updatedAt, err := repos.Cart.EnsureCart(ctx, alice.ID, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, updatedAt.Equal(later), "EnsureCart must not move updated_at of an existing cart")

	lines, err = repos.Cart.Lines(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 7, lines[0].Quantity)
}

func TestCartRepository_ConcurrentAdds(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	ctx := context.Background()
	alice := createUser(t, repos, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Cart.AddQuantity(ctx, alice.ID, 2, 1, time.Now())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	lines, err := repos.Cart.Lines(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 20, lines[0].Quantity)
}
