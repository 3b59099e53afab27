// Command worker runs the change reactions for changes published on NATS.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/socialape/backend/internal/bootstrap"
	"github.com/anonto42/socialape/backend/internal/metrics"
	"github.com/anonto42/socialape/backend/pkg/config"
	"github.com/anonto42/socialape/backend/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel).With("component", "worker")

	if cfg.NATSURL == "" {
		logger.Error("NATS_URL is required to run the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize runtime", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("failed to close runtime", "error", err)
		}
	}()

	if rt.Bus == nil {
		logger.Error("store backend delivers its own changes, nothing to consume", "store", cfg.StoreBackend)
		return
	}

	// reactions in flight finish while the subscription drains
	sub, err := rt.Bus.Subscribe(context.WithoutCancel(ctx), rt.Triggers)
	if err != nil {
		logger.Error("failed to subscribe", "error", err)
		return
	}
	logger.Info("worker subscribed", "subject", sub.Subject, "queue", sub.Queue)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")

	if err := sub.Drain(); err != nil {
		logger.Warn("drain subscription", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
}
