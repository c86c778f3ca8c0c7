// Package main is the entry point for the Mini Market database migration tool.
// PostgreSQL migrations are managed with goose; SQLite applies its embedded
// schema forward only.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/repository/postgres"
	"github.com/prn-tf/minimarket/internal/repository/sqlite"
	"github.com/prn-tf/minimarket/internal/server"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var errUnsupported = errors.New("command not supported for this driver")

func main() {
	fs := flag.NewFlagSet("minimarket-migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Usage = printUsage

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	_ = fs.Parse(os.Args[2:])

	switch command {
	case "version":
		if fs.NArg() == 0 && *configPath == "" {
			fmt.Printf("Mini Market Migration Tool\n")
			fmt.Printf("Version: %s\n", Version)
			fmt.Printf("Build Time: %s\n", BuildTime)
			fmt.Printf("Git Commit: %s\n", GitCommit)
			return
		}
	case "up", "down", "status":
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := server.NewLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		err = runPostgres(ctx, command, cfg.Database, logger)
	case config.DriverSQLite:
		err = runSQLite(ctx, command, cfg.Database, logger)
	default:
		err = fmt.Errorf("driver %q has no schema to migrate", cfg.Database.Driver)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("migration failed")
		os.Exit(1)
	}
}

func runPostgres(ctx context.Context, command string, cfg config.DatabaseConfig, logger zerolog.Logger) error {
	db, err := postgres.NewDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator, err := postgres.NewMigrator(db)
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch command {
	case "up":
		version, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Database is at version %d\n", version)

	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Rolled back to version %d\n", version)

	case "status":
		states, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range states {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%05d  %-8s  %s\n", s.Version, state, s.Path)
		}

	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d\n", version)
	}
	return nil
}

func runSQLite(ctx context.Context, command string, cfg config.DatabaseConfig, logger zerolog.Logger) error {
	db, err := sqlite.NewDB(ctx, sqlite.ConfigFromDatabase(cfg), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		version, err := db.Migrate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Database is at version %d\n", version)

	case "status", "version":
		version, err := db.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d\n", version)

	case "down":
		return fmt.Errorf("%w: sqlite migrations are forward-only", errUnsupported)
	}
	return nil
}

func printUsage() {
	fmt.Println(`Mini Market Migration Tool

Usage:
  minimarket-migrate <command> [-config path]

Commands:
  up          Apply all pending migrations
  down        Roll back the last migration (postgres only)
  status      Show applied and pending migrations
  version     Print the schema version (or tool version without -config)
  help        Show this help message

The database is selected by the database.* configuration, for example
MINIMARKET_DATABASE_DRIVER=postgres MINIMARKET_DATABASE_HOST=db.

Examples:
  minimarket-migrate up
  minimarket-migrate status -config configs/config.yaml
  minimarket-migrate down`)
}
