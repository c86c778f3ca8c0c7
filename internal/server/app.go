package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/auth"
	cachemem "github.com/prn-tf/minimarket/internal/cache/memory"
	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/handler"
	"github.com/prn-tf/minimarket/internal/lock"
	"github.com/prn-tf/minimarket/internal/metrics"
	"github.com/prn-tf/minimarket/internal/repository"
	redisrepo "github.com/prn-tf/minimarket/internal/repository/redis"
	"github.com/prn-tf/minimarket/internal/service"
)

// Key prefixes used when Redis is enabled.
const (
	redisKeyPrefix  = "minimarket:"
	redisLockPrefix = "minimarket:lock:"
)

// App is a fully wired Mini Market server.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	Repos   *repository.Repositories
	Users   *service.UserService
	Catalog *service.CatalogService
	Cart    *service.CartService
	Contact *service.ContactService
	Metrics *metrics.Metrics

	handler http.Handler
	redis   *redisrepo.Client
	closers []func()
}

// New builds the dependency graph described by cfg. On error every
// resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}
	if err := app.build(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	var err error

	a.Repos, err = OpenRepositories(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		a.redis, err = redisrepo.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	hasher, err := auth.NewPasswordHasher(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}

	a.Users = service.NewUserService(service.UserServiceConfig{
		UserRepo: a.Repos.User,
		CartRepo: a.Repos.Cart,
		Hasher:   hasher,
		Tokens:   a.tokenIssuer(),
		Metrics:  a.Metrics,
		Logger:   logger,
	})
	a.Catalog = service.NewCatalogService(a.Repos.Product, a.Repos.Offer, logger)
	a.Cart = service.NewCartService(service.CartServiceConfig{
		CartRepo:    a.Repos.Cart,
		ProductRepo: a.Repos.Product,
		Locker:      a.cartLocker(),
		LockPolicy: lock.RetryPolicy{
			TTL:        cfg.Cart.LockTTL,
			MaxRetries: cfg.Cart.LockRetries,
			RetryDelay: cfg.Cart.LockRetryDelay,
		},
		Metrics: a.Metrics,
		Logger:  logger,
	})
	a.Contact = service.NewContactService(service.NewContactNotifier(cfg.Contact, logger), logger)

	maxBody := cfg.Server.MaxBodySize
	a.handler = handler.NewRouter(handler.RouterConfig{
		AuthHandler:        handler.NewAuthHandler(a.Users, maxBody, logger),
		CatalogHandler:     handler.NewCatalogHandler(a.Catalog, logger),
		CartHandler:        handler.NewCartHandler(a.Cart, maxBody, cfg.Server.LegacyRoutes, logger),
		ContactHandler:     handler.NewContactHandler(a.Contact, maxBody, logger),
		AuthMiddleware:     auth.Middleware(a.Users, a.logger),
		HealthCheck:        a.Health,
		Metrics:            a.Metrics,
		MetricsPath:        cfg.Metrics.Path,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:             logger,
	})

	logger.Info().
		Str("database", cfg.Database.Driver).
		Bool("redis", cfg.Redis.Enabled).
		Str("token_mode", cfg.Auth.TokenMode).
		Str("password_hasher", cfg.Auth.PasswordHasher).
		Str("lock_mode", cfg.Cart.LockMode).
		Msg("application initialized")

	return nil
}

func (a *App) tokenIssuer() auth.TokenIssuer {
	ttl := a.cfg.Auth.TokenTTL
	if a.cfg.Auth.TokenMode == config.TokenModeJWT {
		return auth.NewJWTTokens(a.cfg.Auth.JWTSecret, a.cfg.Auth.JWTIssuer, ttl)
	}
	if a.redis != nil {
		return auth.NewOpaqueTokens(redisrepo.NewCache(a.redis, redisKeyPrefix), ttl)
	}
	cache := cachemem.NewCache()
	a.closers = append(a.closers, cache.Stop)
	return auth.NewOpaqueTokens(cache, ttl)
}

func (a *App) cartLocker() lock.Locker {
	switch {
	case a.cfg.Cart.LockMode == config.LockModeNone:
		return lock.NewNoOpLocker()
	case a.redis != nil:
		return lock.NewRedisLocker(redisrepo.NewDistributedLock(a.redis, redisLockPrefix))
	default:
		locker := lock.NewMemoryLocker()
		a.closers = append(a.closers, locker.Stop)
		return locker
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Health checks the storage backend and, when enabled, Redis.
func (a *App) Health(ctx context.Context) error {
	if err := a.Repos.Health(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}

// Close releases background workers, Redis and the database.
func (a *App) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Repos != nil {
		errs = append(errs, a.Repos.Close())
	}
	return errors.Join(errs...)
}
