package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the configured repository and, when enabled, the AMQP client.
// An unreachable broker is logged and the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteRepository(config)
	case MemoryBackend:
		repo = f.createMemoryRepository(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Repo:    repo,
		AMQP:    amqpClient,
		Cleanup: cleanup(repo, amqpClient),
	}, nil
}

func (f *DefaultFactory) createSQLiteRepository(config Config) (Repository, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryRepository(config Config) Repository {
	if config.MemorySeedDir == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New()
	}
	f.logger.Info("Initialized memory backend", "seed_directory", config.MemorySeedDir)
	return memory.NewFromDir(config.MemorySeedDir)
}

func cleanup(repo Repository, amqpClient *amqp.Client) CleanupFunc {
	return func() error {
		var errs []error
		if c, ok := repo.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
