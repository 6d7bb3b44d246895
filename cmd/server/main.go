package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/filestore"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/httpserver"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/metrics"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/whatsapp"
	"github.com/tunzy-shop/tunzy-session/internal/app"
	"github.com/tunzy-shop/tunzy-session/internal/platform/config"
	"github.com/tunzy-shop/tunzy-session/internal/platform/logging"
	"github.com/tunzy-shop/tunzy-session/internal/platform/version"
)

const shutdownTimeout = 10 * time.Second

func runGracefulShutdown(srv *httpserver.Server, registry *app.Registry, stopEviction func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopEviction()
		if err := registry.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to close live sessions", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config, clock clockwork.Clock) *filestore.Store {
	store := filestore.NewStore(cfg.SessionsRoot(), clock)
	if err := store.EnsureRoot(); err != nil {
		slog.Error("Failed to prepare sessions directory", "error", err)
		os.Exit(1)
	}
	return store
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.String())

	store := setupStore(cfg, clock)
	slog.Info("Sessions directory ready", "path", store.Root())

	promRegistry := metrics.NewRegistry()
	sessionMetrics := metrics.NewSessionMetrics(promRegistry)

	registry := app.NewRegistry(cfg.MaxLiveClients, cfg.SessionTTL, clock, sessionMetrics)
	stopEviction := registry.StartEvictionTimer(cfg.EvictionInterval)

	waLogger := whatsapp.NewLogger(slog.Default(), logging.ParseLevel(cfg.WALogLevel))
	clients := whatsapp.NewFactory(cfg.BrowserName, waLogger)

	opts := app.Options{
		SessionIDPrefix: cfg.SessionIDPrefix,
		BrandName:       cfg.BrowserName,
		SettleDelay:     cfg.PairingSettleDelay,
		RequestTimeout:  cfg.RequestTimeout,
		PruneUnlinked:   cfg.PruneUnlinked,
	}
	if cfg.PrintQR {
		opts.QRPrinter = whatsapp.PrintQR
	}
	appSvc := app.NewService(store, clients, registry, sessionMetrics, clock, opts)

	healthChecks := []httpserver.HealthCheck{
		{Name: "sessions_dir", Check: store.Writable},
	}
	srv, err := httpserver.NewServer(cfg, appSvc, clock, promRegistry, healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, registry, stopEviction)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
