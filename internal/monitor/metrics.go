package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest outcomes recorded in servermon_ingest_total.
const (
	OutcomeInserted      = "inserted"
	OutcomeUpdated       = "updated"
	OutcomeConflictRetry = "conflict_retry"
	OutcomeInvalid       = "invalid"
	OutcomeTimeout       = "timeout"
	OutcomeError         = "error"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	ingests       *prometheus.CounterVec
	ingestLatency prometheus.Histogram
	lockWait      prometheus.Histogram
	listed        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servermon",
			Name:      "ingest_total",
			Help:      "Agent reports processed, by outcome.",
		}, []string{"outcome"}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "servermon",
			Name:      "ingest_duration_seconds",
			Help:      "Time to reconcile one agent report.",
			Buckets:   prometheus.DefBuckets,
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "servermon",
			Name:      "address_lock_wait_seconds",
			Help:      "Time spent waiting for the per-address lock.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		listed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "servermon",
			Name:      "servers_listed",
			Help:      "Servers returned by the most recent listing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ingests, m.ingestLatency, m.lockWait, m.listed)
	}
	return m
}

func (m *Metrics) outcome(o string) {
	if m == nil {
		return
	}
	m.ingests.WithLabelValues(o).Inc()
}

func (m *Metrics) observeIngest(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestLatency.Observe(d.Seconds())
}

func (m *Metrics) observeLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) setListed(n int) {
	if m == nil {
		return
	}
	m.listed.Set(float64(n))
}

// Outcomes exposes the outcome counter for inspection in tests.
func (m *Metrics) Outcomes() *prometheus.CounterVec {
	return m.ingests
}
