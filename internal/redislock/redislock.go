// Package redislock provides a monitor.Locker shared by every servermon
// instance pointed at the same Redis, so the per-address insert-or-update
// decision stays serialized across processes.
//
// A lock is a key set with NX and a TTL holding a random token; release
// deletes the key only if it still holds that token. The TTL bounds how long
// a crashed holder can block an address.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errHeld = errors.New("lock held")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker implements monitor.Locker on Redis.
type Locker struct {
	client       redis.UniversalClient
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
	maxPoll      time.Duration
	logger       *slog.Logger
}

// Option customises a Locker.
type Option func(*Locker)

// WithPrefix sets the key namespace. Default: "servermon:lock:".
func WithPrefix(p string) Option { return func(l *Locker) { l.prefix = p } }

// WithTTL sets how long an unreleased lock survives. Default: 10s.
func WithTTL(d time.Duration) Option { return func(l *Locker) { l.ttl = d } }

// WithPollInterval sets the first retry delay while waiting. Default: 5ms.
func WithPollInterval(d time.Duration) Option { return func(l *Locker) { l.pollInterval = d } }

// WithLogger sets the logger used for release failures.
func WithLogger(lg *slog.Logger) Option { return func(l *Locker) { l.logger = lg } }

// New returns a Locker using client.
func New(client redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		client:       client,
		prefix:       "servermon:lock:",
		ttl:          10 * time.Second,
		pollInterval: 5 * time.Millisecond,
		maxPoll:      200 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Lock waits until key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.pollInterval
	b.MaxInterval = l.maxPoll
	b.MaxElapsedTime = 0 // bounded by ctx

	acquire := func() error {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errHeld
		}
		return nil
	}
	if err := backoff.Retry(acquire, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
	}

	return func() { l.release(redisKey, token) }, nil
}

// release runs on its own short deadline: the caller's context may already
// be cancelled, and the key must still be freed.
func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("redis lock release failed", "key", redisKey, "error", err)
	}
}

// Ping checks connectivity to Redis.
func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
