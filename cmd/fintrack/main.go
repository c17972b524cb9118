package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(applog.FromContext(context.Background()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	result, err := cli.InitBackend(context.Background(), logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	srv, svc := newServer(cfg, result, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", result.AMQP != nil,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			<-done
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

// newServer builds the ledger service and HTTP server on top of an opened backend.
func newServer(cfg *config.Config, result *backend.BackendResult, logger *applog.Logger) (*apphttp.Server, *services.LedgerService) {
	var events services.EventPublisher
	if result.AMQP != nil {
		events = result.AMQP
	}
	svc := services.NewLedgerService(result.Repo, events, logger)

	var ready func(context.Context) error
	if pinger, ok := result.Repo.(interface{ Ping(context.Context) error }); ok {
		ready = pinger.Ping
	}

	srv := apphttp.NewServer(svc, apphttp.Options{
		Addr:      ":" + cfg.Port,
		RateLimit: cfg.RateLimit,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
		Ready:     ready,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB
	return srv, svc
}
