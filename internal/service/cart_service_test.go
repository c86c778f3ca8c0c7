package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/lock"
	"github.com/prn-tf/minimarket/internal/repository/memory"
)

func TestCartService_AdditiveAddScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, err := env.cart.AddItem(ctx, alice, 1, 2)
	require.NoError(t, err)
	summary, err := env.cart.AddItem(ctx, alice, 1, 3)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	item := summary.Items[0]
	require.Equal(t, 5, item.Quantity)
	require.Equal(t, "12.45", item.LineTotal.StringFixed(2))
	require.Equal(t, "12.45", summary.Total.StringFixed(2))
	require.Equal(t, "alice", summary.Username)

	got, err := env.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, summary.Total.String(), got.Total.String())

	require.Equal(t, 2.0, testutil.ToFloat64(env.metrics.CartOperations.WithLabelValues("add", "ok")))
}

func TestCartService_TotalIsSumOfRoundedLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	adds := map[int64]int{1: 3, 2: 7, 5: 11, 6: 999}
	for id, q := range adds {
		_, err := env.cart.AddItem(ctx, alice, id, q)
		require.NoError(t, err)
	}

	summary, err := env.cart.GetCart(ctx, alice)
	require.NoError(t, err)

	want := decimal.Zero
	for _, item := range summary.Items {
		require.Equal(t, domain.LineTotal(item.UnitPrice, item.Quantity).String(), item.LineTotal.String())
		want = want.Add(item.LineTotal)
	}
	require.True(t, want.Round(2).Equal(summary.Total))
}

func TestCartService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, err := env.cart.AddItem(ctx, alice, 999, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	for _, q := range []int{0, -1, 1000} {
		_, err = env.cart.AddItem(ctx, alice, 1, q)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity, "quantity %d", q)
	}

	_, err = env.cart.SetItemQuantity(ctx, alice, 1, 4)
	require.ErrorIs(t, err, domain.ErrItemNotInCart)

	_, err = env.cart.AddItem(ctx, alice, 1, 1)
	require.NoError(t, err)

	_, err = env.cart.SetItemQuantity(ctx, alice, 1, 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	summary, err := env.cart.SetItemQuantity(ctx, alice, 1, 4)
	require.NoError(t, err)
	require.Equal(t, 4, summary.Items[0].Quantity)

	summary, err = env.cart.RemoveItem(ctx, alice, 1)
	require.NoError(t, err)
	_, present := summary.Line(1)
	require.False(t, present)

	_, err = env.cart.RemoveItem(ctx, alice, 1)
	require.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestCartService_UnavailableProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	products := memory.NewProductRepository([]*domain.Product{
		{ID: 1, Name: "Seasonal Figs", Price: decimal.RequireFromString("4.00"), Unit: "kg", Category: "fruits", IsAvailable: false},
	})
	svc := NewCartService(CartServiceConfig{
		CartRepo:    env.repos.Cart,
		ProductRepo: products,
		Locker:      env.locker,
		LockPolicy:  lock.RetryPolicy{TTL: time.Second},
		Logger:      zerolog.Nop(),
	})

	for _, q := range []int{1, 5, 999} {
		_, err := svc.AddItem(ctx, alice, 1, q)
		require.ErrorIs(t, err, domain.ErrProductUnavailable)
		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		require.Equal(t, "Product 'Seasonal Figs' is currently not available", de.Message)
	}

	summary, err := svc.GetCart(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, summary.Items)
}

func TestCartService_UsersAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	_, err := env.cart.AddItem(ctx, alice, 3, 2)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, bob, 4, 1)
	require.NoError(t, err)
	_, err = env.cart.RemoveItem(ctx, bob, 3)
	require.ErrorIs(t, err, domain.ErrItemNotInCart)

	a, err := env.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	b, err := env.cart.GetCart(ctx, bob)
	require.NoError(t, err)

	require.Len(t, a.Items, 1)
	require.Equal(t, int64(3), a.Items[0].ProductID)
	require.Len(t, b.Items, 1)
	require.Equal(t, int64(4), b.Items[0].ProductID)
}

func TestCartService_ConcurrentAddsAreAllApplied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.cart.AddItem(ctx, alice, 2, 2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	summary, err := env.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 2*workers, summary.Items[0].Quantity)
}

func TestCartService_BusyLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	svc := NewCartService(CartServiceConfig{
		CartRepo:    env.repos.Cart,
		ProductRepo: env.repos.Product,
		Locker:      env.locker,
		LockPolicy:  lock.RetryPolicy{TTL: time.Second, MaxRetries: 1, RetryDelay: time.Millisecond},
		Metrics:     env.metrics,
		Logger:      zerolog.Nop(),
	})

	token, err := env.locker.Acquire(ctx, lock.Keys.Cart(alice.UserID), time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = svc.AddItem(ctx, alice, 1, 1)
	require.ErrorIs(t, err, ErrCartBusy)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CartOperations.WithLabelValues("add", "busy")))

	// Reads do not take the lock.
	_, err = svc.GetCart(ctx, alice)
	require.NoError(t, err)
}

func TestCartService_LegacyAdd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, err := env.cart.LegacyAdd(ctx, alice, 4, 1)
	require.NoError(t, err)
	out, err := env.cart.LegacyAdd(ctx, alice, 4, 2)
	require.NoError(t, err)

	require.Equal(t, "Free Range Eggs", out.Product.Name)
	require.Equal(t, 2, out.Quantity)
	require.Equal(t, "6.58", out.TotalPrice.StringFixed(2))

	summary, err := env.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	line, ok := summary.Line(4)
	require.True(t, ok)
	require.Equal(t, 3, line.Quantity)
}
