// Package postgres implements monitor.Store on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Register postgres driver
)

const schema = `
CREATE TABLE IF NOT EXISTS health_snapshots (
	id BIGSERIAL PRIMARY KEY,
	captured_at TIMESTAMPTZ NOT NULL,
	server_name TEXT NOT NULL DEFAULT '',
	server_ip TEXT NOT NULL UNIQUE,
	network_status TEXT NOT NULL DEFAULT '',
	cpu_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
	memory_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
	disk_usage DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_health_snapshots_captured
	ON health_snapshots (captured_at DESC, id);
`

// OpenDB opens a PostgreSQL connection pool and ensures the schema exists.
func OpenDB(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the snapshot table and its indexes if missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: init schema: %w", err)
	}
	return nil
}
