package monitor

import "context"

// Lister serves the one-row-per-address view.
type Lister struct {
	store   Store
	metrics *Metrics
}

// NewLister returns a Lister reading from store.
func NewLister(store Store, metrics *Metrics) *Lister {
	return &Lister{store: store, metrics: metrics}
}

// List returns the most recent snapshot per address, newest first.
func (l *Lister) List(ctx context.Context) ([]HealthSnapshot, error) {
	all, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := Dedupe(all)
	l.metrics.setListed(len(out))
	return out, nil
}

// Dedupe keeps the first occurrence of each address in rows, which must
// already be ordered newest first. Order is preserved. The result is
// non-nil even when rows is empty.
func Dedupe(rows []HealthSnapshot) []HealthSnapshot {
	seen := make(map[string]struct{}, len(rows))
	out := make([]HealthSnapshot, 0, len(rows))
	for _, s := range rows {
		if _, ok := seen[s.ServerAddress]; ok {
			continue
		}
		seen[s.ServerAddress] = struct{}{}
		out = append(out, s)
	}
	return out
}
