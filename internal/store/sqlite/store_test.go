package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"servermon/internal/monitor"
	"servermon/internal/store/sqlite"
	"servermon/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewStore(db)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) monitor.Store {
		s := openMemory(t)
		return sqlite.NewStore(s.DB, sqlite.WithClock(now))
	})
}

func TestStoreConcurrentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "servermon.db")
	db, err := sqlite.OpenDB(path, sqlite.WithMkdirAll(), sqlite.WithMaxOpenConns(8))
	require.NoError(t, err)
	defer db.Close()

	storetest.RunConcurrent(t, sqlite.NewStore(db))
}

func TestOpenDBPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.db")
	db, err := sqlite.OpenDB(path, sqlite.WithBusyTimeout(2500))
	require.NoError(t, err)
	defer db.Close()

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var busy int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 2500, busy)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	db, err := sqlite.OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, db.Close())

	// reopening applies nothing new and keeps the data
	db, err = sqlite.OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestUniqueConstraintIsBackstop(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO health_snapshots (captured_at, server_name, server_ip, network_status, cpu_usage, memory_usage, disk_usage)
		 VALUES (1, 'a', '10.0.0.1', 'up', 0, 0, 0)`)
	require.NoError(t, err)

	_, err = s.Insert(ctx, storetest.Report("10.0.0.1", "up"))
	require.ErrorIs(t, err, monitor.ErrConflict)
}

func TestPing(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.DB.Close())
	assert.Error(t, s.Ping(context.Background()))
}

func TestRunTxRollsBack(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	err := sqlite.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO health_snapshots (captured_at, server_ip) VALUES (1, '10.0.0.9')`)
		require.NoError(t, err)
		return monitor.ErrInternal
	})
	require.ErrorIs(t, err, monitor.ErrInternal)

	got, err := s.FindByAddress(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, sqlite.IsBusy(nil))
	assert.True(t, sqlite.IsBusy(errString("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, sqlite.IsBusy(errString("no such table")))
}

type errString string

func (e errString) Error() string { return string(e) }
