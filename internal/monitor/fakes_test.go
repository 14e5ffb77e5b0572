package monitor_test

import (
	"context"
	"sync"

	"servermon/internal/monitor"
	"servermon/internal/store/memory"
)

// gatedStore holds Insert for gated addresses until the gate is closed.
type gatedStore struct {
	*memory.Store
	gates   map[string]chan struct{}
	entered chan string
}

func newGatedStore(addrs ...string) *gatedStore {
	s := &gatedStore{
		Store:   memory.New(),
		gates:   map[string]chan struct{}{},
		entered: make(chan string, len(addrs)),
	}
	for _, a := range addrs {
		s.gates[a] = make(chan struct{})
	}
	return s
}

func (s *gatedStore) Insert(ctx context.Context, r monitor.Report) (int64, error) {
	if gate, ok := s.gates[r.ServerAddress]; ok {
		s.entered <- r.ServerAddress
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return s.Store.Insert(ctx, r)
}

// racingStore simulates a writer outside the lock: the first lookup of an
// address misses even though another instance already inserted it.
type racingStore struct {
	*memory.Store
	mu     sync.Mutex
	missed map[string]bool
}

func newRacingStore() *racingStore {
	return &racingStore{Store: memory.New(), missed: map[string]bool{}}
}

func (s *racingStore) FindByAddress(ctx context.Context, addr string) (*monitor.HealthSnapshot, error) {
	s.mu.Lock()
	first := !s.missed[addr]
	s.missed[addr] = true
	s.mu.Unlock()
	if first {
		return nil, nil
	}
	return s.Store.FindByAddress(ctx, addr)
}

// brokenStore fails every call with err.
type brokenStore struct{ err error }

func (s brokenStore) FindByAddress(context.Context, string) (*monitor.HealthSnapshot, error) {
	return nil, s.err
}
func (s brokenStore) Insert(context.Context, monitor.Report) (int64, error) { return 0, s.err }
func (s brokenStore) Update(context.Context, int64, monitor.Report) error   { return s.err }
func (s brokenStore) GetByID(context.Context, int64) (*monitor.HealthSnapshot, error) {
	return nil, s.err
}
func (s brokenStore) ListAll(context.Context) ([]monitor.HealthSnapshot, error) { return nil, s.err }
func (s brokenStore) Ping(context.Context) error                                { return s.err }

// stuckStore blocks every call until the context ends.
type stuckStore struct{ brokenStore }

func (stuckStore) FindByAddress(ctx context.Context, _ string) (*monitor.HealthSnapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stuckStore) ListAll(ctx context.Context) ([]monitor.HealthSnapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
