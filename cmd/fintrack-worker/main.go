package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(applog.FromContext(context.Background()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting fintrack-worker", applog.FieldOperation, applog.OpStartup)

	result, err := openBackend(context.Background(), cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	digests := worker.NewDigestWorker(result.Repo, time.Now, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	// Digest stored ledgers once to cover events missed while the worker was down
	if err := digests.StartupCheck(ctx); err != nil {
		logger.Error("Startup check failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := result.AMQP.ConsumeSnapshotChanged(gctx, digests.HandleSnapshotChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	<-done
	logger.Info("Worker stopped gracefully")
}

// openBackend opens the backend and insists on a live AMQP client.
func openBackend(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.BackendResult, error) {
	if !cfg.AMQPEnabled() {
		return nil, errors.New("AMQP is required by the worker: AMQP_URL is empty")
	}
	result, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	if result.AMQP == nil {
		_ = result.Cleanup()
		return nil, errors.New("AMQP broker unreachable")
	}
	return result, nil
}
