// Package postgres opens the relational store holding catalogs, categories,
// source fields and facet configurations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gally-search/gally/internal/db"
)

// Default pool settings.
const (
	DefaultMaxConns     = 10
	DefaultQueryTimeout = 3 * time.Second
	connectTimeout      = 5 * time.Second
)

// Config holds connection settings.
type Config struct {
	DSN          string
	MaxConns     int32
	QueryTimeout time.Duration
}

// Querier is the subset of pgxpool.Pool used by repositories.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Compile-time check: *pgxpool.Pool satisfies Querier.
var _ Querier = (*pgxpool.Pool)(nil)

// Pool is a pinged Postgres connection pool.
type Pool struct {
	*pgxpool.Pool
	queryTimeout time.Duration
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = DefaultMaxConns
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Pool{Pool: pool, queryTimeout: timeout}, nil
}

// Ping checks the connection.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.Pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// QueryTimeout returns the per-query timeout repositories should apply.
func (p *Pool) QueryTimeout() time.Duration { return p.queryTimeout }

// WrapError wraps a driver error in db.Error. pgx.ErrNoRows becomes db.ErrNoRows.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &db.Error{Op: op, Err: db.ErrNoRows}
	}
	return &db.Error{Op: op, Err: err}
}
