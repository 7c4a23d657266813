// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Kreative ID HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis (postage outbox).
//  5. Run database migrations (idempotent).
//  6. Build the keychain codec and metrics registry.
//  7. Wire domain services, gates and HTTP handlers.
//  8. Start the postage dispatcher.
//  9. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/kreativeid/internal/api"
	"github.com/taibuivan/kreativeid/internal/identity/account"
	"github.com/taibuivan/kreativeid/internal/identity/application"
	"github.com/taibuivan/kreativeid/internal/identity/auth"
	"github.com/taibuivan/kreativeid/internal/identity/keychain"
	"github.com/taibuivan/kreativeid/internal/identity/permission"
	"github.com/taibuivan/kreativeid/internal/platform/config"
	"github.com/taibuivan/kreativeid/internal/platform/constants"
	"github.com/taibuivan/kreativeid/internal/platform/logging"
	"github.com/taibuivan/kreativeid/internal/platform/metrics"
	"github.com/taibuivan/kreativeid/internal/platform/middleware"
	"github.com/taibuivan/kreativeid/internal/platform/migration"
	pgstore "github.com/taibuivan/kreativeid/internal/platform/postgres"
	redisstore "github.com/taibuivan/kreativeid/internal/platform/redis"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
	"github.com/taibuivan/kreativeid/internal/postage"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := logging.New(os.Stdout, false)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = logging.New(os.Stdout, true)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Duration("keychain_ttl", cfg.KeychainTTL),
		slog.Int("dedup_exempt", len(cfg.DedupExemptKSNs)),
	)

	// Root context for startup. A 30s deadline surfaces misconfiguration
	// instead of hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Codec & Metrics ────────────────────────────────────────────────
	codec, err := sec.NewKeychainCodec(cfg.KeychainSecret, cfg.KeychainTTL)
	must(log, err, "initialize keychain codec")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	outbox := postage.NewRedisOutbox(rdb, cfg.MailFrom, cfg.MailReplyTo)

	accountRepository := account.NewPostgresRepository(pool)
	applicationRepository := application.NewPostgresRepository(pool)
	keychainRepository := keychain.NewPostgresRepository(pool)

	accountService := account.NewService(accountRepository, outbox)
	applicationService := application.NewService(applicationRepository)
	manager := keychain.NewManager(
		keychainRepository,
		codec,
		applicationService,
		accountService,
		keychain.NewDedupPolicy(cfg.DedupExemptKSNs),
		collector,
	)
	authService := auth.NewService(accountService, applicationService, manager, outbox)
	permissionGate := permission.NewGate(manager, accountService)

	appGate := middleware.RequireApp(applicationService)
	sessionGate := middleware.RequireSession(manager)
	adminGate := middleware.RequireAdmin(manager, middleware.AdminPolicy{
		HostAIDN:    cfg.HostAIDN,
		Permissions: cfg.AdminPermissions,
	})

	// Health handlers wired with real dependency checkers.
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Metrics:     metrics.Handler(registry),
		Auth:        auth.NewHandler(authService),
		Account:     account.NewHandler(accountService, appGate, sessionGate),
		Permission:  permission.NewHandler(permissionGate),
		Keychain:    keychain.NewHandler(manager, adminGate),
		Application: application.NewHandler(applicationService, adminGate),
	}

	// Background work stops with this context.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── 8. Postage Dispatcher ─────────────────────────────────────────────
	dispatcher := postage.NewDispatcher(rdb, postage.LogSender{Logger: log}, log)
	go func() {
		if err := dispatcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("postage_dispatcher_stopped", slog.Any("error", err))
		}
	}()

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(runCtx, cfg, log, collector, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}
	runCancel()

	log.Info("server_stopped_cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
