package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate cfg.
// Empty values are accepted here; Normalize fills them in.
func Validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "", DriverSQLite, DriverMemory:
	case DriverPostgres:
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage: postgres_dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.BusyTimeoutMs < 0 {
		return fmt.Errorf("storage: busy_timeout_ms must not be negative")
	}
	if cfg.Storage.MaxOpenConns < 0 {
		return fmt.Errorf("storage: max_open_conns must not be negative")
	}

	switch cfg.Lock.Backend {
	case "", LockLocal:
	case LockRedis:
		if cfg.Lock.RedisAddr == "" {
			return fmt.Errorf("lock: redis_addr is required for backend %q", LockRedis)
		}
	default:
		return fmt.Errorf("lock: unknown backend %q", cfg.Lock.Backend)
	}
	if cfg.Lock.TTL < 0 {
		return fmt.Errorf("lock: ttl must not be negative")
	}

	if cfg.Server.RequestTimeout < 0 {
		return fmt.Errorf("server: request_timeout must not be negative")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server: max_body_bytes must not be negative")
	}
	if p := cfg.Server.LegacyPrefix; p != "" && p != "-" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("server: legacy_prefix %q must start with /", p)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("log: unknown format %q", cfg.Log.Format)
	}
	return nil
}
