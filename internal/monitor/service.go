package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Service is the explicitly constructed entry point handed to transports.
// Every call runs under the configured timeout and returns only the
// package's error kinds: *ValidationError, ErrNotFound, ErrTimeout or
// ErrInternal.
type Service struct {
	store      Store
	reconciler *Reconciler
	lister     *Lister
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *Metrics
	locker     Locker
}

// Option customises a Service.
type Option func(*Service)

// WithTimeout bounds every operation. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMetrics sets the collectors. Default: none.
func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLocker sets the per-address lock. Default: an in-process KeyedMutex.
func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

// NewService builds a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.locker == nil {
		s.locker = NewKeyedMutex()
	}
	s.reconciler = NewReconciler(store, s.locker, s.logger, s.metrics)
	s.lister = NewLister(store, s.metrics)
	return s
}

// Ingest reconciles one agent report.
func (s *Service) Ingest(ctx context.Context, rep Report) (Ack, error) {
	start := time.Now()
	defer func() { s.metrics.observeIngest(time.Since(start)) }()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	ack, err := s.reconciler.Ingest(ctx, rep)
	if err == nil {
		return ack, nil
	}
	if IsValidation(err) {
		s.metrics.outcome(OutcomeInvalid)
		s.logger.DebugContext(ctx, "rejected report", "error", err)
		return Ack{}, err
	}
	err = s.fail(ctx, "ingest", err)
	if errors.Is(err, ErrTimeout) {
		s.metrics.outcome(OutcomeTimeout)
	} else {
		s.metrics.outcome(OutcomeError)
	}
	return Ack{}, err
}

// Get returns the snapshot with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*HealthSnapshot, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	snap, err := s.store.GetByID(ctx, id)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, s.fail(ctx, "get", err)
}

// List returns one snapshot per address, newest first.
func (s *Service) List(ctx context.Context) ([]HealthSnapshot, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	out, err := s.lister.List(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return out, nil
}

// Ping checks the backend when the store supports it.
func (s *Service) Ping(ctx context.Context) error {
	p, ok := s.store.(Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return s.fail(ctx, "ping", err)
	}
	return nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// fail hides err behind ErrTimeout or ErrInternal. Only internal failures
// are logged at error level.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.InfoContext(ctx, "operation aborted", "op", op, "error", err)
		return ErrTimeout
	}
	s.logger.ErrorContext(ctx, "error processing request", "op", op, "error", err)
	return ErrInternal
}
