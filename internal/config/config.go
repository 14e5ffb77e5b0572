// Package config loads servermon-server settings from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Lock    LockConfig    `yaml:"lock"`
	Log     LogConfig     `yaml:"log"`
}

// ---- SERVER ----

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	LegacyPrefix      string        `yaml:"legacy_prefix"`
}

// ---- STORAGE ----

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type StorageConfig struct {
	Driver        string `yaml:"driver"`
	SQLitePath    string `yaml:"sqlite_path"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
}

// ---- LOCK ----

const (
	LockLocal = "local"
	LockRedis = "redis"
)

type LockConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	KeyPrefix     string        `yaml:"key_prefix"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (if non-empty), applies environment overrides, validates
// and normalizes. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	Normalize(&cfg)
	return &cfg, nil
}

// ApplyEnv overrides cfg with SERVERMON_* variables that are set.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "SERVERMON_ADDR")
	setString(&cfg.Server.LegacyPrefix, "SERVERMON_LEGACY_PREFIX")
	setString(&cfg.Storage.Driver, "SERVERMON_DB_DRIVER")
	setString(&cfg.Storage.SQLitePath, "SERVERMON_DB_PATH")
	setString(&cfg.Storage.PostgresDSN, "SERVERMON_PG_DSN")
	setString(&cfg.Lock.Backend, "SERVERMON_LOCK_BACKEND")
	setString(&cfg.Lock.RedisAddr, "SERVERMON_REDIS_ADDR")
	setString(&cfg.Lock.RedisPassword, "SERVERMON_REDIS_PASSWORD")
	setString(&cfg.Log.Level, "SERVERMON_LOG_LEVEL")
	setString(&cfg.Log.Format, "SERVERMON_LOG_FORMAT")

	if err := setDuration(&cfg.Server.RequestTimeout, "SERVERMON_REQUEST_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Lock.RedisDB, "SERVERMON_REDIS_DB"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
