// Package postgres keeps archives in a PostgreSQL schema through a pgx pool.
package postgres

import (
	"context"
	"time"

	"github.com/flarebyte/tracker-snapshot/internal/config"
	dbutil "github.com/flarebyte/tracker-snapshot/internal/dao/dbutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool returns a pgx pool with sane defaults using the provided config.
func OpenPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, dbutil.ErrWrap("postgres.config", err, dbutil.ParamSummary("host", cfg.Host), dbutil.ParamSummary("user", cfg.User))
	}
	pcfg.MaxConns = 10
	pcfg.MaxConnLifetime = 30 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, dbutil.ErrWrap("postgres.open", err, dbutil.ParamSummary("host", cfg.Host))
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, dbutil.ErrWrap("postgres.ping", err, dbutil.ParamSummary("host", cfg.Host), dbutil.ParamSummary("port", cfg.Port))
	}
	return pool, nil
}

// Backend holds every archive kept in one schema.
type Backend struct {
	db     *pgxpool.Pool
	schema string
}

// Open connects and makes sure the archive schema exists.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Backend, error) {
	pool, err := OpenPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		schema = config.DefaultPostgresSchema
	}
	if err := EnsureArchiveSchema(ctx, pool, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{db: pool, schema: schema}, nil
}

// Close releases the pool.
func (b *Backend) Close() { b.db.Close() }
