package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/mongo"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Storage — выбранный при старте бэкенд хранения. Владеет соединениями до Close.
type Storage interface {
	Repositories() domain.Repositories
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// OpenStorage открывает бэкенд, указанный в cfg.StorageDriver.
// Для postgres при включённом автоприменении накатываются миграции,
// для mongodb создаются индексы.
func OpenStorage(ctx context.Context, cfg Config, logger *log.Entry) (Storage, error) {
	if logger == nil {
		logger = log.WithField("component", "storage")
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres dsn is required")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close(ctx)
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		logger.WithField("driver", cfg.StorageDriver).Info("storage initialized")
		return store, nil

	case StorageDriverMongo:
		if cfg.MongoURI == "" || cfg.MongoDatabase == "" {
			return nil, errors.New("mongodb uri and database are required")
		}
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
		}
		logger.WithFields(log.Fields{
			"driver":   cfg.StorageDriver,
			"database": cfg.MongoDatabase,
		}).Info("storage initialized")
		return store, nil

	default:
		return nil, unsupportedDriverError(cfg.StorageDriver)
	}
}
