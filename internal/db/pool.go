package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/PeterUlb/layeringtst/internal/config"
	_ "github.com/lib/pq"
)

const (
	driverName         = "postgres"
	defaultPingTimeout = 5 * time.Second
)

// Pool is the process-wide set of PostgreSQL connections. Requests borrow a
// Conn with Acquire and give it back with Conn.Close.
type Pool struct {
	db *sql.DB
}

// NewPool wraps an already opened *sql.DB.
func NewPool(db *sql.DB) *Pool {
	return &Pool{db: db}
}

// Open creates the pool described by cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	sqlDB, err := sql.Open(driverName, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewPool(sqlDB), nil
}

// Acquire borrows a connection for the exclusive use of the caller.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, storeErr("acquire", err)
	}
	return &Conn{session: session{ex: c}, conn: c}, nil
}

// Stats returns database/sql pool statistics.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close closes every connection in the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}
