package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/store"
	"sales-dashboard/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr(shutdownCtx, "Failed to shutdown tracer", err)
		}
	}()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}
	initializeTracing(ctx, cfg)

	rt := upstreamTransport()
	auth := initializeAuth(ctx, cfg, rt)
	source := initializeSource(cfg, auth, rt)
	settings := store.NewSettings(cfg.Sheets.SettingsFile)
	dash := initializeDashboard(cfg, source, settings, rt)
	srv := initializeHTTP(cfg, dash, settings, auth)

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Dashboard listening",
			"addr", cfg.Server.Addr,
			"timezone", cfg.Timezone,
			"connected", auth.Connected(),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "HTTP server failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down...")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr(shutdownCtx, "Graceful shutdown failed", err)
		}
	}
}
