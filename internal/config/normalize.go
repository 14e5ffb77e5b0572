package config

import (
	"strings"
	"time"
)

// Normalize fills defaults. It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = ":5000"
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = 5 * time.Second
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = 10 * time.Second
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 15 * time.Second
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = 1 << 20
	}
	// "-" disables the legacy mount
	switch s.LegacyPrefix {
	case "":
		s.LegacyPrefix = "/api"
	case "-":
		s.LegacyPrefix = ""
	default:
		s.LegacyPrefix = strings.TrimRight(s.LegacyPrefix, "/")
	}

	st := &cfg.Storage
	if st.Driver == "" {
		st.Driver = DriverSQLite
	}
	if st.SQLitePath == "" {
		st.SQLitePath = "./data/servermon.db"
	}
	if st.BusyTimeoutMs == 0 {
		st.BusyTimeoutMs = 10_000
	}

	l := &cfg.Lock
	if l.Backend == "" {
		l.Backend = LockLocal
	}
	if l.TTL == 0 {
		l.TTL = 10 * time.Second
	}
	if l.KeyPrefix == "" {
		l.KeyPrefix = "servermon:lock:"
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
