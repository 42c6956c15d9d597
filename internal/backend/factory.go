package backend

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/store/memory"
	mongostore "ledger/internal/store/mongo"
	"ledger/internal/store/postgres"
	"ledger/internal/store/rest"
)

// Factory creates gateways based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create connects the configured backend. Backends with a schema are
// migrated before Create returns.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case SQLite:
		return f.createSQLite(cfg)
	case Postgres:
		return f.createPostgres(ctx, cfg)
	case Mongo:
		return f.createMongo(ctx, cfg)
	case REST:
		return f.createREST(cfg)
	case Memory:
		return f.createMemory()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *Factory) createSQLite(cfg Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Gateway: repo, Cleanup: repo.Close}, nil
}

func (f *Factory) createPostgres(ctx context.Context, cfg Config) (*Result, error) {
	st, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")
	return &Result{
		Gateway: st,
		Cleanup: func() error {
			st.Close()
			return nil
		},
	}, nil
}

func (f *Factory) createMongo(ctx context.Context, cfg Config) (*Result, error) {
	client, err := mongostore.Connect(ctx, cfg.MongoURI, f.logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	repo := mongostore.NewRepository(mongostore.NewMongoProvider(client, cfg.MongoDatabase))

	f.logger.Info("Initialized MongoDB backend", "database", cfg.MongoDatabase)
	return &Result{
		Gateway: repo,
		Cleanup: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

func (f *Factory) createREST(cfg Config) (*Result, error) {
	client, err := rest.New(cfg.RESTURL, cfg.RESTKey, cfg.RESTTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST backend: %w", err)
	}

	f.logger.Info("Initialized REST backend", "client", client.String())
	return &Result{Gateway: client}, nil
}

func (f *Factory) createMemory() (*Result, error) {
	f.logger.Warn("Using in-memory backend, transactions are lost on restart")
	return &Result{Gateway: memory.New()}, nil
}
