// Package cli holds the startup steps shared by cmd/ledger and
// cmd/ledger-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/identity"
	"ledger/internal/log"
)

// SetupLogger builds the process logger at LOG_LEVEL and makes it the slog
// default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitIdentity resolves the owner identifier from IDENTITY_FILE. With
// IDENTITY_EPHEMERAL set an unusable file yields a per-process identifier;
// otherwise the process exits.
func InitIdentity(cfg *config.Config, logger *log.Logger) *identity.Provider {
	owner, err := identity.New(identity.NewFileStore(cfg.IdentityFile), identity.Options{
		AllowEphemeral: cfg.IdentityEphemeral,
		Logger:         logger.WithComponent(log.ComponentIdentity).Logger,
	})
	if err != nil {
		logger.Error("Failed to resolve owner identifier",
			"path", cfg.IdentityFile,
			log.FieldError, err)
		os.Exit(1)
	}
	return owner
}

// InitBackend opens the configured data backend or exits.
func InitBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldBackend, bcfg.Type,
			log.FieldError, err)
		os.Exit(1)
	}
	return res
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
