package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	owner := cli.InitIdentity(cfg, logger)
	res := cli.InitBackend(ctx, cfg, logger)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	snapshots, err := cache.NewRistretto[*core.Ledger](cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		logger.Error("Failed to create snapshot cache", log.FieldError, err)
		os.Exit(1)
	}
	defer snapshots.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		defer client.Close()
		if err := client.Connect(ctx); err != nil {
			// Publishing redials on demand; the ledger works without the broker.
			logger.Warn("AMQP broker unavailable at startup", log.FieldError, err)
		}
		publisher = client
	} else {
		logger.Info("AMQP disabled, transaction events will not be published")
	}

	ledger := services.NewLedgerService(res.Gateway, owner, publisher, snapshots, logger)
	if _, err := ledger.Load(ctx); err != nil {
		logger.Warn("Initial load failed, the calendar will retry on first request", log.FieldError, err)
	}

	srv, err := apphttp.NewServer(ledger, apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			log.FieldOwnerID, owner.OwnerID(),
			"ephemeral_identity", owner.Ephemeral())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
