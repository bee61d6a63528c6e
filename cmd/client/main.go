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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/mailguard/internal/client/api"
	"github.com/iudanet/mailguard/internal/client/cache"
	"github.com/iudanet/mailguard/internal/client/cli"
	"github.com/iudanet/mailguard/internal/client/config"
	"github.com/iudanet/mailguard/internal/client/graphql"
	"github.com/iudanet/mailguard/internal/client/iocli"
	"github.com/iudanet/mailguard/internal/client/mail"
	"github.com/iudanet/mailguard/internal/client/session"
	"github.com/iudanet/mailguard/internal/client/storage"
	"github.com/iudanet/mailguard/internal/client/storage/boltdb"
	"github.com/iudanet/mailguard/internal/client/storage/memory"
	"github.com/iudanet/mailguard/internal/client/storage/redis"
	"github.com/iudanet/mailguard/internal/client/storage/sealed"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.Load(os.Args[1:], ".env", os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cli.PrintUsage()
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		return 0
	}

	// Получаем команду
	if len(args) == 0 || args[0] == "help" {
		cli.PrintUsage()
		if len(args) == 0 {
			return 1
		}
		return 0
	}
	command := args[0]

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open session store: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close session store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	apiClient := api.NewClient(cfg.ServerURL, api.WithTimeout(cfg.Timeout))
	guard := session.NewGuard(apiClient, store,
		session.WithLogger(logger),
		session.WithMetrics(session.NewMetrics(reg)),
		session.WithExpiredHandler(func(ctx context.Context, redirectTo string) {
			logger.InfoContext(ctx, "session cleared", slog.String("redirect", redirectTo))
		}),
	)
	gql := graphql.NewClient(cfg.GraphQLURL, guard,
		graphql.WithRefresher(guard),
		graphql.WithLogger(logger),
	)

	// кэш необязателен, без него просто нет --offline
	var emailCache cli.Cache
	mailOpts := []mail.Option{mail.WithLogger(logger)}
	if cfg.CachePath != "" {
		c, err := cache.New(ctx, cfg.CachePath)
		if err != nil {
			logger.Warn("email cache disabled", "path", cfg.CachePath, "error", err)
		} else {
			defer func() {
				if err := c.Close(); err != nil {
					logger.Error("failed to close email cache", "error", err)
				}
			}()
			emailCache = c
			mailOpts = append(mailOpts, mail.WithCache(c))
		}
	}
	mailService := mail.NewService(guard, gql, mailOpts...)

	app := cli.New(iocli.NewStdio(), guard, mailService, emailCache)
	if err := app.Run(ctx, command, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
		return 1
	}
	return 0
}

// openStore builds the session store selected by cfg, sealed when a
// passphrase is configured
func openStore(ctx context.Context, cfg *config.Config) (storage.SessionStore, error) {
	var store storage.SessionStore
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.New()
	case config.StoreRedis:
		s, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "", 0)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		s, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		store = s
	}

	if cfg.Passphrase == "" {
		return store, nil
	}
	s, err := sealed.New(ctx, store, cfg.Passphrase)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return srv
}

func printVersion() {
	fmt.Printf("MailGuard Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
