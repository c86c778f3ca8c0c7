// Package postgres provides the PostgreSQL storage backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/repository"
)

const (
	applicationName    = "minimarket"
	connectTimeout     = 10 * time.Second
	slowQueryThreshold = 250 * time.Millisecond
)

// DB owns the pgx pool shared by the postgres repositories.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns <= cfg.MaxOpenConns {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	poolConfig.ConnConfig.Tracer = &queryTracer{
		logger: logger.With().Str("component", "postgres").Logger(),
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close waits for checked-out connections and closes the pool.
func (db *DB) Close() error {
	stat := db.Pool.Stat()
	db.Pool.Close()
	db.logger.Info().
		Int64("acquired_total", stat.AcquireCount()).
		Msg("PostgreSQL pool closed")
	return nil
}

// Ping checks that a connection can be acquired.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Health runs a trivial query end to end.
func (db *DB) Health(ctx context.Context) error {
	var one int
	if err := db.Pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("postgres health query failed: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction, committing when fn returns nil.
// The rollback is not tied to ctx so a cancelled request still releases its locks.
func (db *DB) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	rollback := func() error {
		return tx.Rollback(context.WithoutCancel(ctx))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := rollback(); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryTracer logs every statement at debug level and slow or failed ones at warn.
type queryTracer struct {
	logger zerolog.Logger
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	nargs int
	at    time.Time
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{
		sql:   data.SQL,
		nargs: len(data.Args),
		at:    time.Now(),
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.at)

	var event *zerolog.Event
	switch {
	case data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows):
		event = t.logger.Warn().Err(data.Err)
	case elapsed >= slowQueryThreshold:
		event = t.logger.Warn().Bool("slow", true)
	default:
		event = t.logger.Debug()
	}

	// Arguments are not logged; they include password hashes.
	event.
		Str("sql", start.sql).
		Int("args", start.nargs).
		Dur("duration", elapsed).
		Str("command_tag", data.CommandTag.String()).
		Msg("query executed")
}

// NewRepositories builds the full repository set on db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:     NewUserRepository(db),
		Product:  NewProductRepository(db),
		Offer:    NewOfferRepository(db),
		Cart:     NewCartRepository(db),
		Database: db,
	}
}
