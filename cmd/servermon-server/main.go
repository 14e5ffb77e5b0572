package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"servermon/internal/config"
	"servermon/internal/logger"
	"servermon/internal/monitor"
	"servermon/internal/redislock"
	"servermon/internal/server"
	"servermon/internal/store/memory"
	"servermon/internal/store/postgres"
	"servermon/internal/store/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("SERVERMON_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "servermon-server: config: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("servermon-server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []monitor.Option{
		monitor.WithTimeout(cfg.Server.RequestTimeout),
		monitor.WithLogger(log),
		monitor.WithMetrics(monitor.NewMetrics(reg)),
	}
	if cfg.Lock.Backend == config.LockRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		})
		defer rdb.Close()
		locker := redislock.New(rdb,
			redislock.WithPrefix(cfg.Lock.KeyPrefix),
			redislock.WithTTL(cfg.Lock.TTL),
			redislock.WithLogger(log),
		)
		if err := locker.Ping(ctx); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Lock.RedisAddr, err)
		}
		opts = append(opts, monitor.WithLocker(locker))
	}
	svc := monitor.NewService(store, opts...)

	api := &server.API{
		Service:      svc,
		Logger:       log,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(api, server.RouterOptions{LegacyPrefix: cfg.Server.LegacyPrefix, Gatherer: reg}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("servermon-server listening",
			"addr", cfg.Server.Addr,
			"driver", cfg.Storage.Driver,
			"lock", cfg.Lock.Backend,
			"legacy_prefix", cfg.Server.LegacyPrefix,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (monitor.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil

	case config.DriverPostgres:
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN, cfg.MaxOpenConns)
		if err != nil {
			return nil, nil, err
		}
		log.Info("storage ready", "driver", cfg.Driver)
		return postgres.NewStore(db), func() { db.Close() }, nil

	default:
		db, err := sqlite.OpenDB(cfg.SQLitePath,
			sqlite.WithBusyTimeout(cfg.BusyTimeoutMs),
			sqlite.WithMaxOpenConns(cfg.MaxOpenConns),
			sqlite.WithMkdirAll(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.SQLitePath, err)
		}
		log.Info("storage ready", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return sqlite.NewStore(db), func() { db.Close() }, nil
	}
}
