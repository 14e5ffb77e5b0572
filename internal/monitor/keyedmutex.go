package monitor

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
)

type keyLock struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// removed once the last holder or waiter is gone, so the map only grows
// with the number of addresses currently in flight.
type KeyedMutex struct {
	locks *xsync.Map[string, *keyLock]
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: xsync.NewMap[string, *keyLock]()}
}

// Lock blocks until key is free or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	l, _ := m.locks.Compute(key, func(old *keyLock, loaded bool) (*keyLock, xsync.ComputeOp) {
		if !loaded {
			old = &keyLock{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, xsync.UpdateOp
	})

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			m.release(key)
		}, nil
	case <-ctx.Done():
		m.release(key)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) release(key string) {
	m.locks.Compute(key, func(old *keyLock, loaded bool) (*keyLock, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		old.refs--
		if old.refs == 0 {
			return old, xsync.DeleteOp
		}
		return old, xsync.UpdateOp
	})
}

// Len reports the number of keys currently held or awaited.
func (m *KeyedMutex) Len() int {
	return m.locks.Size()
}
