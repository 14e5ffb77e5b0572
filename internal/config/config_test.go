package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "postgres without dsn", cfg: Config{Storage: StorageConfig{Driver: DriverPostgres}}, wantErr: "postgres_dsn"},
		{name: "postgres with dsn", cfg: Config{Storage: StorageConfig{Driver: DriverPostgres, PostgresDSN: "postgres://x"}}},
		{name: "unknown driver", cfg: Config{Storage: StorageConfig{Driver: "mysql"}}, wantErr: "unknown driver"},
		{name: "negative busy timeout", cfg: Config{Storage: StorageConfig{BusyTimeoutMs: -1}}, wantErr: "busy_timeout_ms"},
		{name: "redis without addr", cfg: Config{Lock: LockConfig{Backend: LockRedis}}, wantErr: "redis_addr"},
		{name: "unknown lock", cfg: Config{Lock: LockConfig{Backend: "etcd"}}, wantErr: "unknown backend"},
		{name: "negative timeout", cfg: Config{Server: ServerConfig{RequestTimeout: -time.Second}}, wantErr: "request_timeout"},
		{name: "relative prefix", cfg: Config{Server: ServerConfig{LegacyPrefix: "api"}}, wantErr: "legacy_prefix"},
		{name: "disabled prefix", cfg: Config{Server: ServerConfig{LegacyPrefix: "-"}}},
		{name: "bad level", cfg: Config{Log: LogConfig{Level: "loud"}}, wantErr: "unknown level"},
		{name: "upper level", cfg: Config{Log: LogConfig{Level: "DEBUG"}}},
		{name: "bad format", cfg: Config{Log: LogConfig{Format: "xml"}}, wantErr: "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.cfg
			err := Validate(&tt.cfg)
			assert.Equal(t, before, tt.cfg, "Validate must not mutate")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	Normalize(&cfg)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "/api", cfg.Server.LegacyPrefix)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "./data/servermon.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 10_000, cfg.Storage.BusyTimeoutMs)
	assert.Equal(t, LockLocal, cfg.Lock.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestNormalizeLegacyPrefix(t *testing.T) {
	for in, want := range map[string]string{"-": "", "/v0/": "/v0", "/api": "/api"} {
		cfg := Config{Server: ServerConfig{LegacyPrefix: in}}
		Normalize(&cfg)
		assert.Equal(t, want, cfg.Server.LegacyPrefix, "input %q", in)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servermon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
  request_timeout: 2s
storage:
  driver: memory
lock:
  backend: local
log:
  level: debug
  format: text
`), 0o600))

	t.Setenv("SERVERMON_ADDR", ":9090")
	t.Setenv("SERVERMON_REQUEST_TIMEOUT", "750ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 750*time.Millisecond, cfg.Server.RequestTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: [oops\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("SERVERMON_REDIS_DB", "one")
	_, err = Load("")
	assert.ErrorContains(t, err, "SERVERMON_REDIS_DB")
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("SERVERMON_DB_DRIVER", "postgres")
	_, err := Load("")
	assert.ErrorContains(t, err, "postgres_dsn")
}
