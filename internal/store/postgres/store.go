package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"servermon/internal/monitor"
)

const snapshotColumns = `id, captured_at, server_name, server_ip, network_status, cpu_usage, memory_usage, disk_usage`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = pq.ErrorCode("23505")

// Store is a monitor.Store backed by PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the capture time source.
func WithClock(now func() time.Time) StoreOption { return func(s *Store) { s.now = now } }

// NewStore wraps an open pool. It does not run migrations.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindByAddress(ctx context.Context, address string) (*monitor.HealthSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots WHERE server_ip = $1`, address)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find by address: %w", err)
	}
	return snap, nil
}

func (s *Store) Insert(ctx context.Context, r monitor.Report) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO health_snapshots
			 (captured_at, server_name, server_ip, network_status, cpu_usage, memory_usage, disk_usage)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			s.now().UTC(), r.ServerName, r.ServerAddress, r.NetworkStatus,
			r.CPUUsage, r.MemoryUsage, r.DiskUsage,
		).Scan(&id)
	})
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, monitor.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: insert: %w", err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id int64, r monitor.Report) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE health_snapshots
			 SET server_name = $1, network_status = $2, cpu_usage = $3, memory_usage = $4, disk_usage = $5,
			     captured_at = GREATEST(captured_at, $6)
			 WHERE id = $7`,
			r.ServerName, r.NetworkStatus, r.CPUUsage, r.MemoryUsage, r.DiskUsage,
			s.now().UTC(), id,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return monitor.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, monitor.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("postgres: update: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*monitor.HealthSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return snap, nil
}

func (s *Store) ListAll(ctx context.Context) ([]monitor.HealthSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots ORDER BY captured_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []monitor.HealthSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list scan: %w", err)
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	return out, nil
}

// Ping verifies query execution, not just the connection.
func (s *Store) Ping(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("postgres: health check: %w", err)
	}
	return nil
}

// inTx commits fn's work or rolls it back on any error.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*monitor.HealthSnapshot, error) {
	var snap monitor.HealthSnapshot
	if err := sc.Scan(&snap.ID, &snap.CapturedAt, &snap.ServerName, &snap.ServerAddress,
		&snap.NetworkStatus, &snap.CPUUsage, &snap.MemoryUsage, &snap.DiskUsage); err != nil {
		return nil, err
	}
	snap.CapturedAt = snap.CapturedAt.UTC()
	return &snap, nil
}
