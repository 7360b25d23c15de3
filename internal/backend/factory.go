package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finances/internal/amqp"
	"finances/internal/ports"
	"finances/internal/services"
	"finances/internal/storage"
	"finances/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	dial   func(url, exchange, routingKey string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

// CreateBackend opens the configured store and, when AMQP is configured,
// the event publisher. An unreachable broker is logged and events are
// disabled; the ledger keeps working without them.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ports.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store = f.createMemoryStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: store, Cleanup: store.Close}

	if config.AMQPURL != "" {
		client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
			result.Events = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), store.Close())
			}
		}
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (ports.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context, config Config) ports.Store {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)
	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return store
}

var _ services.EventPublisher = (*amqp.Client)(nil)
