package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"servermon/internal/monitor"
)

const snapshotColumns = `id, captured_at, server_name, server_ip, network_status, cpu_usage, memory_usage, disk_usage`

// Store is a monitor.Store backed by one SQLite database. capture times are
// stored as unix nanoseconds.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the capture time source.
func WithClock(now func() time.Time) StoreOption { return func(s *Store) { s.now = now } }

func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{DB: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) FindByAddress(ctx context.Context, address string) (*monitor.HealthSnapshot, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots WHERE server_ip = ?`, address)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find by address: %w", err)
	}
	return snap, nil
}

func (s *Store) Insert(ctx context.Context, r monitor.Report) (int64, error) {
	var id int64
	err := RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO health_snapshots
			 (captured_at, server_name, server_ip, network_status, cpu_usage, memory_usage, disk_usage)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.now().UnixNano(), r.ServerName, r.ServerAddress, r.NetworkStatus,
			r.CPUUsage, r.MemoryUsage, r.DiskUsage,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if isUniqueViolation(err) {
		return 0, monitor.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert: %w", err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id int64, r monitor.Report) error {
	err := RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE health_snapshots
			 SET server_name=?, network_status=?, cpu_usage=?, memory_usage=?, disk_usage=?,
			     captured_at=MAX(captured_at, ?)
			 WHERE id=?`,
			r.ServerName, r.NetworkStatus, r.CPUUsage, r.MemoryUsage, r.DiskUsage,
			s.now().UnixNano(), id,
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
		return fmt.Errorf("sqlite: update: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*monitor.HealthSnapshot, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return snap, nil
}

func (s *Store) ListAll(ctx context.Context) ([]monitor.HealthSnapshot, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots ORDER BY captured_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	out := []monitor.HealthSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list scan: %w", err)
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	return out, nil
}

// Ping runs a trivial query to prove the database answers.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("sqlite: health check: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*monitor.HealthSnapshot, error) {
	var snap monitor.HealthSnapshot
	var capturedAt int64
	if err := sc.Scan(&snap.ID, &capturedAt, &snap.ServerName, &snap.ServerAddress,
		&snap.NetworkStatus, &snap.CPUUsage, &snap.MemoryUsage, &snap.DiskUsage); err != nil {
		return nil, err
	}
	snap.CapturedAt = time.Unix(0, capturedAt).UTC()
	return &snap, nil
}
