// Package storetest holds the behaviour every monitor.Store must share.
// Backends call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"servermon/internal/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store whose capture times come from now.
type Factory func(t *testing.T, now func() time.Time) monitor.Store

// Clock is a settable time source safe for concurrent use.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock() *Clock {
	return &Clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func Report(addr, status string) monitor.Report {
	return monitor.Report{
		ServerName:    "web-" + addr,
		ServerAddress: addr,
		NetworkStatus: status,
		CPUUsage:      12.5,
		MemoryUsage:   40,
		DiskUsage:     70,
	}
}

// Run exercises the Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("FindUnknown", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		got, err := s.FindByAddress(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("InsertThenFind", func(t *testing.T) {
		clk := NewClock()
		s := newStore(t, clk.Now)
		ctx := context.Background()

		id, err := s.Insert(ctx, Report("10.0.0.1", "up"))
		require.NoError(t, err)
		assert.Positive(t, id)

		got, err := s.FindByAddress(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "web-10.0.0.1", got.ServerName)
		assert.Equal(t, "up", got.NetworkStatus)
		assert.Equal(t, 12.5, got.CPUUsage)
		assert.True(t, clk.Now().Equal(got.CapturedAt), "captured_at %v", got.CapturedAt)
	})

	t.Run("InsertDuplicateConflicts", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		ctx := context.Background()
		_, err := s.Insert(ctx, Report("10.0.0.1", "up"))
		require.NoError(t, err)
		_, err = s.Insert(ctx, Report("10.0.0.1", "down"))
		require.ErrorIs(t, err, monitor.ErrConflict)

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("UpdateOverwritesAndRefreshes", func(t *testing.T) {
		clk := NewClock()
		s := newStore(t, clk.Now)
		ctx := context.Background()
		id, err := s.Insert(ctx, Report("10.0.0.1", "up"))
		require.NoError(t, err)

		clk.Advance(time.Minute)
		next := Report("10.0.0.1", "down")
		next.ServerName = "renamed"
		next.DiskUsage = 91
		require.NoError(t, s.Update(ctx, id, next))

		got, err := s.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "renamed", got.ServerName)
		assert.Equal(t, "down", got.NetworkStatus)
		assert.Equal(t, 91.0, got.DiskUsage)
		assert.Equal(t, "10.0.0.1", got.ServerAddress)
		assert.True(t, clk.Now().Equal(got.CapturedAt))
	})

	t.Run("UpdateNeverMovesCaptureBackwards", func(t *testing.T) {
		clk := NewClock()
		s := newStore(t, clk.Now)
		ctx := context.Background()
		id, err := s.Insert(ctx, Report("10.0.0.1", "up"))
		require.NoError(t, err)
		inserted := clk.Now()

		clk.Advance(-time.Hour)
		require.NoError(t, s.Update(ctx, id, Report("10.0.0.1", "down")))

		got, err := s.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "down", got.NetworkStatus)
		assert.True(t, inserted.Equal(got.CapturedAt))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		err := s.Update(context.Background(), 4242, Report("10.0.0.1", "up"))
		require.ErrorIs(t, err, monitor.ErrNotFound)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		_, err := s.GetByID(context.Background(), 9999)
		require.ErrorIs(t, err, monitor.ErrNotFound)
	})

	t.Run("ListAllOrder", func(t *testing.T) {
		clk := NewClock()
		s := newStore(t, clk.Now)
		ctx := context.Background()

		empty, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		idX, err := s.Insert(ctx, Report("x", "up"))
		require.NoError(t, err)
		clk.Advance(time.Second)
		idY, err := s.Insert(ctx, Report("y", "up"))
		require.NoError(t, err)
		// same instant as y: ties break by id
		idZ, err := s.Insert(ctx, Report("z", "up"))
		require.NoError(t, err)
		clk.Advance(time.Second)
		require.NoError(t, s.Update(ctx, idX, Report("x", "down")))

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		var ids []int64
		for _, r := range all {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []int64{idX, idY, idZ}, ids)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Insert(ctx, Report("10.0.0.1", "up"))
		require.Error(t, err)

		all, err := s.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all, "cancelled insert must not leave a row")
	})
}

// RunConcurrent drives the full reconciler against the store from many
// goroutines and checks the one-row-per-address invariant.
func RunConcurrent(t *testing.T, s monitor.Store) {
	svc := monitor.NewService(s, monitor.WithTimeout(30*time.Second))
	ctx := context.Background()

	addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := Report(addrs[i%len(addrs)], "up")
			r.CPUUsage = float64(i)
			_, err := svc.Ingest(ctx, r)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(addrs))
	seen := map[string]bool{}
	for _, r := range all {
		assert.False(t, seen[r.ServerAddress], "duplicate row for %s", r.ServerAddress)
		seen[r.ServerAddress] = true
	}
}
