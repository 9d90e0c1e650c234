package backend

import (
	"context"
	"fmt"

	"stephly/internal/log"
	"stephly/internal/store/memory"
	"stephly/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLBackend(ctx, storage.SQLite, config.SQLiteDBPath)
	case PostgresBackend:
		return f.createSQLBackend(ctx, storage.Postgres, config.DatabaseURL)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, d storage.Dialect, dsn string) (*BackendResult, error) {
	var (
		repo *storage.Repository
		err  error
	)
	if d == storage.SQLite {
		repo, err = storage.NewSQLiteRepository(dsn, f.logger)
	} else {
		repo, err = storage.NewPostgresRepository(dsn, f.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", d, err)
	}

	f.logger.InfoContext(ctx, "Initialized SQL backend", "dialect", string(d))

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	f.logger.InfoContext(ctx, "Initialized memory backend; data is lost on restart")

	return &BackendResult{
		Store:   memory.New(),
		Cleanup: nil,
	}, nil
}
