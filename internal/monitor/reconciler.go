package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Reconciler decides insert vs update for each report. It keeps no state
// between calls besides its collaborators.
type Reconciler struct {
	store   Store
	locker  Locker
	logger  *slog.Logger
	metrics *Metrics
}

// NewReconciler wires a Reconciler. A nil locker falls back to a KeyedMutex,
// a nil logger to slog.Default.
func NewReconciler(store Store, locker Locker, logger *slog.Logger, metrics *Metrics) *Reconciler {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, locker: locker, logger: logger, metrics: metrics}
}

// Ingest upserts rep keyed by its server address. The lookup and the write
// run under the address lock; the store's unique constraint backs this up
// against writers outside the lock (other instances), and a lost insert race
// is retried once as an update.
func (r *Reconciler) Ingest(ctx context.Context, rep Report) (Ack, error) {
	if err := rep.Validate(); err != nil {
		return Ack{}, err
	}

	waitStart := time.Now()
	unlock, err := r.locker.Lock(ctx, rep.ServerAddress)
	r.metrics.observeLockWait(time.Since(waitStart))
	if err != nil {
		return Ack{}, fmt.Errorf("lock %s: %w", rep.ServerAddress, err)
	}
	defer unlock()

	existing, err := r.store.FindByAddress(ctx, rep.ServerAddress)
	if err != nil {
		return Ack{}, fmt.Errorf("find %s: %w", rep.ServerAddress, err)
	}
	if existing != nil {
		return r.update(ctx, existing.ID, rep)
	}

	id, err := r.store.Insert(ctx, rep)
	switch {
	case err == nil:
		r.metrics.outcome(OutcomeInserted)
		r.logger.InfoContext(ctx, "received data",
			"id", id, "server_ip", rep.ServerAddress, "server_name", rep.ServerName)
		return Ack{ID: id, Created: true}, nil
	case errors.Is(err, ErrConflict):
		r.metrics.outcome(OutcomeConflictRetry)
		r.logger.InfoContext(ctx, "insert lost race, retrying as update", "server_ip", rep.ServerAddress)
		winner, ferr := r.store.FindByAddress(ctx, rep.ServerAddress)
		if ferr != nil {
			return Ack{}, fmt.Errorf("find %s after conflict: %w", rep.ServerAddress, ferr)
		}
		if winner == nil {
			return Ack{}, fmt.Errorf("insert %s: conflicting row not visible", rep.ServerAddress)
		}
		return r.update(ctx, winner.ID, rep)
	default:
		return Ack{}, fmt.Errorf("insert %s: %w", rep.ServerAddress, err)
	}
}

func (r *Reconciler) update(ctx context.Context, id int64, rep Report) (Ack, error) {
	if err := r.store.Update(ctx, id, rep); err != nil {
		return Ack{}, fmt.Errorf("update %s (id %d): %w", rep.ServerAddress, id, err)
	}
	r.metrics.outcome(OutcomeUpdated)
	r.logger.InfoContext(ctx, "updated data for server", "id", id, "server_ip", rep.ServerAddress)
	return Ack{ID: id}, nil
}
