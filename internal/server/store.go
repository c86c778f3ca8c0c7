// Package server wires configuration, storage backends and services into a
// runnable Mini Market HTTP server.
package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/repository"
	"github.com/prn-tf/minimarket/internal/repository/memory"
	"github.com/prn-tf/minimarket/internal/repository/postgres"
	"github.com/prn-tf/minimarket/internal/repository/sqlite"
)

// OpenRepositories connects the configured storage backend. Migrations are
// applied first when cfg.AutoMigrate is set. The caller must Close the result.
func OpenRepositories(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Repositories, error) {
	var repos *repository.Repositories

	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		repos = memory.NewRepositories()

	case config.DriverSQLite:
		db, err := sqlite.NewDB(ctx, sqlite.ConfigFromDatabase(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if cfg.AutoMigrate {
			if _, err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
			}
		}
		repos = sqlite.NewRepositories(db)

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := migratePostgres(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		repos = postgres.NewRepositories(db)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := repos.Validate(); err != nil {
		_ = repos.Close()
		return nil, err
	}
	return repos, nil
}

func migratePostgres(ctx context.Context, db *postgres.DB) error {
	migrator, err := postgres.NewMigrator(db)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	if _, err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate postgres database: %w", err)
	}
	return nil
}
