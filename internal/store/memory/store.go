// Package memory is an in-process monitor.Store. State is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"servermon/internal/monitor"
)

type Store struct {
	mu sync.RWMutex

	rows   map[int64]*monitor.HealthSnapshot
	byAddr map[string]int64
	nextID int64
	now    func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the capture time source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(opts ...Option) *Store {
	s := &Store{
		rows:   map[int64]*monitor.HealthSnapshot{},
		byAddr: map[string]int64{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) FindByAddress(ctx context.Context, address string) (*monitor.HealthSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAddr[address]
	if !ok {
		return nil, nil
	}
	snap := *s.rows[id]
	return &snap, nil
}

func (s *Store) Insert(ctx context.Context, r monitor.Report) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAddr[r.ServerAddress]; ok {
		return 0, monitor.ErrConflict
	}
	s.nextID++
	snap := &monitor.HealthSnapshot{
		ID:            s.nextID,
		CapturedAt:    s.now(),
		ServerAddress: r.ServerAddress,
	}
	r.Apply(snap)
	s.rows[snap.ID] = snap
	s.byAddr[r.ServerAddress] = snap.ID
	return snap.ID, nil
}

func (s *Store) Update(ctx context.Context, id int64, r monitor.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.rows[id]
	if !ok {
		return monitor.ErrNotFound
	}
	r.Apply(snap)
	// capture time never moves backwards for an address
	if now := s.now(); now.After(snap.CapturedAt) {
		snap.CapturedAt = now
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*monitor.HealthSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.rows[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	out := *snap
	return &out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]monitor.HealthSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]monitor.HealthSnapshot, 0, len(s.rows))
	for _, snap := range s.rows {
		out = append(out, *snap)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b monitor.HealthSnapshot) int {
		if c := b.CapturedAt.Compare(a.CapturedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
