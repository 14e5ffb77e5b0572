package server

import (
	"servermon/internal/monitor"
	"servermon/internal/shared"
)

// recordView is the GET /agent/{id} shape.
func recordView(s *monitor.HealthSnapshot) shared.AgentRecord {
	return shared.AgentRecord{
		Timestamp:     s.CapturedAt.UTC(),
		ServerName:    s.ServerName,
		ServerIP:      s.ServerAddress,
		NetworkStatus: s.NetworkStatus,
		CPUUsage:      s.CPUUsage,
		MemoryUsage:   s.MemoryUsage,
		DiskUsage:     s.DiskUsage,
	}
}

// serversView is the GET /servers shape. The result is never nil so an
// empty store encodes as [].
func serversView(rows []monitor.HealthSnapshot) []shared.ServerEntry {
	out := make([]shared.ServerEntry, 0, len(rows))
	for _, s := range rows {
		out = append(out, shared.ServerEntry{
			ID:            s.ID,
			ServerName:    s.ServerName,
			ServerIP:      s.ServerAddress,
			NetworkStatus: s.NetworkStatus,
			CPUUsage:      s.CPUUsage,
			MemoryUsage:   s.MemoryUsage,
			DiskUsage:     s.DiskUsage,
		})
	}
	return out
}

// toReport converts the wire body into a monitor.Report. A field absent
// from the JSON body is a validation failure.
func toReport(in shared.AgentReport) (monitor.Report, error) {
	missing := func(f string) error {
		return &monitor.ValidationError{Field: f, Reason: "is required"}
	}
	switch {
	case in.ServerName == nil:
		return monitor.Report{}, missing("server_name")
	case in.ServerIP == nil:
		return monitor.Report{}, missing("server_ip")
	case in.NetworkStatus == nil:
		return monitor.Report{}, missing("network_status")
	case in.CPUUsage == nil:
		return monitor.Report{}, missing("cpu_usage")
	case in.MemoryUsage == nil:
		return monitor.Report{}, missing("memory_usage")
	case in.DiskUsage == nil:
		return monitor.Report{}, missing("disk_usage")
	}
	return monitor.Report{
		ServerName:    *in.ServerName,
		ServerAddress: *in.ServerIP,
		NetworkStatus: *in.NetworkStatus,
		CPUUsage:      *in.CPUUsage,
		MemoryUsage:   *in.MemoryUsage,
		DiskUsage:     *in.DiskUsage,
	}, nil
}
