package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Windi-Fikriyansyah/handygo/internal/config"
	"github.com/Windi-Fikriyansyah/handygo/internal/db"
	"github.com/Windi-Fikriyansyah/handygo/internal/handlers"
	"github.com/Windi-Fikriyansyah/handygo/internal/metrics"
	"github.com/Windi-Fikriyansyah/handygo/internal/realtime"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/accounts"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/lifecycle"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification"
)

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	// Without Redis the instance still works alone: events stay local and
	// the verification guard is in-process.
	var (
		rdb   *redis.Client
		guard verification.Guard = verification.NewLocalGuard()
	)
	if client, err := realtime.NewRedis(ctx, cfg.Redis); err != nil {
		log.Warn("redis unavailable, running single-instance", "addr", cfg.Redis.Addr, "err", err)
		_ = client.Close()
	} else {
		log.Info("redis connected", "addr", cfg.Redis.Addr)
		rdb = client
		guard = verification.NewRedisGuard(rdb)
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := realtime.NewHub(log.With("component", "hub"))
	pub := realtime.NewPublisher(rdb, hub, log.With("component", "publisher"))

	acc := accounts.New(gdb, cfg.JWTSecret, cfg.JWTExpiresMin, log)
	if err := acc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	provider := verification.NewStubProvider(cfg.Verification.Tick, cfg.Verification.SuccessRate, time.Now().UnixNano())
	wf := verification.New(gdb, provider, guard, pub, m, cfg.Verification, log)

	app := handlers.NewApp(handlers.Deps{
		Config:       cfg,
		Accounts:     acc,
		Catalog:      catalog.New(gdb, log),
		Lifecycle:    lifecycle.New(gdb, pub, m, log),
		Verification: wf,
		Hub:          hub,
		Registry:     reg,
		Log:          log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return pub.Subscribe(gctx) })
	g.Go(func() error {
		log.Info("listening", "port", cfg.AppPort, "env", cfg.AppEnv)
		return app.Listen(":" + cfg.AppPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			log.Error("http shutdown", "err", err)
		}
		wf.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
