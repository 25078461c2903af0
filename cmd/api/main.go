package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-am-realtime-report-ui/internal/config"
	httpapi "go-am-realtime-report-ui/internal/http"
	"go-am-realtime-report-ui/internal/observability"
)

var version = "dev"

func main() {
	cfg := config.FromEnv()
	logger := observability.NewLogger(cfg, os.Stderr)

	srv, err := httpapi.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting dashboard server",
			slog.String("version", version),
			slog.String("addr", cfg.ListenAddr),
			slog.Bool("mysql", cfg.DBEnabled),
			slog.Bool("customer_map", cfg.CustomerMapSQLitePath != ""),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
