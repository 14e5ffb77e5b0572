// Package monitor reconciles agent health reports into one canonical
// snapshot per server address and serves the deduplicated view.
//
// Owns:
//   - the HealthSnapshot data model and the Report input
//   - the Store and Locker contracts backends must satisfy
//   - insert-vs-update reconciliation and recency dedup
//
// Does not own:
//   - persistence engines (internal/store/...)
//   - transport (internal/server)
//
// Invariants:
//   - at most one snapshot per server address
//   - a snapshot id never changes once assigned
//   - writes for one address are serialized; distinct addresses never wait on each other
package monitor

import (
	"math"
	"strings"
	"time"
)

// HealthSnapshot is the latest known state of one server, keyed by address.
type HealthSnapshot struct {
	ID            int64
	CapturedAt    time.Time
	ServerName    string
	ServerAddress string
	NetworkStatus string
	CPUUsage      float64
	MemoryUsage   float64
	DiskUsage     float64
}

// Report is one agent submission. Every field is overwritten on update.
type Report struct {
	ServerName    string
	ServerAddress string
	NetworkStatus string
	CPUUsage      float64
	MemoryUsage   float64
	DiskUsage     float64
}

// Validate checks the fields a store write depends on.
// Utilization values are agent-reported and not range checked.
func (r Report) Validate() error {
	if strings.TrimSpace(r.ServerAddress) == "" {
		return &ValidationError{Field: "server_ip", Reason: "must not be empty"}
	}
	for _, m := range []struct {
		field string
		v     float64
	}{
		{"cpu_usage", r.CPUUsage},
		{"memory_usage", r.MemoryUsage},
		{"disk_usage", r.DiskUsage},
	} {
		if math.IsNaN(m.v) || math.IsInf(m.v, 0) {
			return &ValidationError{Field: m.field, Reason: "must be a finite number"}
		}
	}
	return nil
}

// Apply overwrites the mutable fields of s with r. ID, address and
// CapturedAt are left to the caller.
func (r Report) Apply(s *HealthSnapshot) {
	s.ServerName = r.ServerName
	s.NetworkStatus = r.NetworkStatus
	s.CPUUsage = r.CPUUsage
	s.MemoryUsage = r.MemoryUsage
	s.DiskUsage = r.DiskUsage
}

// Ack is returned for an accepted report.
type Ack struct {
	ID      int64
	Created bool
}
