// Package database provides the PostgreSQL store handle and bulk loader.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/config"
)

// Pool is the slice of pgxpool.Pool the grabber uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// Provider owns the connection pool for one run.
type Provider struct {
	pool   Pool
	logger *zap.Logger
}

// New builds a pool from the distinct host/port config fields and verifies it
// with a ping. Failures are logged and returned; they are fatal for the run.
func New(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*Provider, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("postgres ping failed",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.Error(err),
		)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("postgres connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)
	return &Provider{pool: pool, logger: logger}, nil
}

// NewWithPool constructs a Provider from an existing pool (primarily for
// testing).
func NewWithPool(pool Pool, logger *zap.Logger) (*Provider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (p *Provider) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// With acquires a Provider for the duration of fn and releases it on every
// exit path, including panics.
func With(ctx context.Context, cfg config.DBConfig, logger *zap.Logger, fn func(*Provider) error) error {
	p, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return p.with(fn)
}

func (p *Provider) with(fn func(*Provider) error) error {
	defer p.Close()
	return fn(p)
}
