// Package db provides the optional PostgreSQL connection used for health probing.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service status values reported by Status.
const (
	StatusOperational   = "operational"
	StatusError         = "error"
	StatusNotConfigured = "not_configured"
)

// DefaultTimeout bounds a ping when Config.Timeout is unset.
const DefaultTimeout = 500 * time.Millisecond

// Config holds connection settings.
type Config struct {
	URL      string
	PoolSize int
	Timeout  time.Duration
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// Open creates a pool without contacting the server. Connections are dialed lazily.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	poolConfig.ConnConfig.ConnectTimeout = timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{pool: pool, timeout: timeout}, nil
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Ping checks connectivity within the configured timeout.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Status reports operational, error, or not_configured for a nil DB.
func (db *DB) Status(ctx context.Context) string {
	if db == nil || db.pool == nil {
		return StatusNotConfigured
	}
	if err := db.Ping(ctx); err != nil {
		return StatusError
	}
	return StatusOperational
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
}

// Stats returns current pool statistics.
func (db *DB) Stats() PoolStats {
	if db == nil || db.pool == nil {
		return PoolStats{}
	}
	s := db.pool.Stat()
	return PoolStats{
		MaxConns:      s.MaxConns(),
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
	}
}

// Close closes the connection pool
func (db *DB) Close() {
	if db != nil && db.pool != nil {
		db.pool.Close()
	}
}
