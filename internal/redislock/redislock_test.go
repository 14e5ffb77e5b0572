package redislock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"servermon/internal/monitor"
	"servermon/internal/redislock"
	"servermon/internal/store/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestLockAndRelease(t *testing.T) {
	mr, client := setupMiniredis(t)
	l := redislock.New(client, redislock.WithPrefix("test:"))

	unlock, err := l.Lock(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:10.0.0.1"))
	assert.Greater(t, mr.TTL("test:10.0.0.1"), time.Duration(0))

	unlock()
	assert.False(t, mr.Exists("test:10.0.0.1"))
}

func TestLockWaitsForHolder(t *testing.T) {
	_, client := setupMiniredis(t)
	l := redislock.New(client, redislock.WithPollInterval(time.Millisecond))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), "k")
		if assert.NoError(t, err) {
			u()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(30 * time.Millisecond):
	}
	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}

func TestLockContextDeadline(t *testing.T) {
	_, client := setupMiniredis(t)
	l := redislock.New(client)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupMiniredis(t)
	l := redislock.New(client, redislock.WithPrefix("p:"), redislock.WithTTL(time.Second))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// TTL expired and another instance took the key
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("p:k", "someone-else"))

	unlock()
	got, err := mr.Get("p:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestDistinctKeysIndependent(t *testing.T) {
	_, client := setupMiniredis(t)
	l := redislock.New(client)

	a, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer a()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	b()
}

func TestSharedAcrossServices(t *testing.T) {
	_, client := setupMiniredis(t)
	store := memory.New()

	// two instances sharing one store and one Redis
	var services []*monitor.Service
	for range 2 {
		l := redislock.New(client, redislock.WithPollInterval(time.Millisecond))
		services = append(services, monitor.NewService(store, monitor.WithLocker(l), monitor.WithTimeout(10*time.Second)))
	}

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ack, err := services[i%2].Ingest(context.Background(), monitor.Report{
				ServerName: "web1", ServerAddress: "10.0.0.1", NetworkStatus: "up",
			})
			if assert.NoError(t, err) && ack.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, 1, store.Len())
}

func TestPing(t *testing.T) {
	mr, client := setupMiniredis(t)
	l := redislock.New(client)
	require.NoError(t, l.Ping(context.Background()))
	mr.Close()
	assert.Error(t, l.Ping(context.Background()))
}
