package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/yourusername/keiba-analytics/internal/config"
)

// DB wraps sqlx.DB to provide database operations against the SQLite store
type DB struct {
	db *sqlx.DB
}

// NewDB opens the SQLite database file from configuration
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_fk=1&_journal_mode=WAL", cfg.Path)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// NewInMemoryDB opens a private in-memory database, used by tests.
func NewInMemoryDB(ctx context.Context) (*DB, error) {
	db, err := sqlx.Open("sqlite3", "file::memory:?_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// A single connection keeps the private memory store alive.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Ping verifies database connectivity
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the underlying connection pool
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// HealthCheck performs a simple health check on the database
func (d *DB) HealthCheck(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Conn returns the underlying sqlx handle for repository use
func (d *DB) Conn() *sqlx.DB {
	return d.db
}
