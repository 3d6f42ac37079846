// Package app bootstraps the relay: configuration, logging, dependency
// wiring and the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anime1local/server/internal/config"
	"github.com/anime1local/server/internal/handlers"
	"github.com/anime1local/server/internal/httpserver"
	"github.com/anime1local/server/internal/middleware"
)

// Overrides carries command-line values that take precedence over the
// environment configuration.
type Overrides struct {
	Host     string
	Port     int
	LogLevel string
}

// Run bootstraps the relay and serves until the context is canceled or a
// termination signal arrives.
func Run(ctx context.Context, overrides Overrides) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if overrides.Host != "" {
		cfg.Host = overrides.Host
	}
	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	deps, service, err := buildDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer service.Close()

	if cfg.PreheatOnStart {
		if err := service.Preheat(ctx); err != nil {
			logger.Warn("upstream preheat failed", "error", err)
		}
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(mux)

	srv := httpserver.New(cfg.Host, cfg.Port, handler)

	logger.Info("starting http server", "host", cfg.Host, "port", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
