// Package store opens the user repository selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/internal/infrastructure/memory"
	mongoinfra "github.com/oksasatya/auth-api/internal/infrastructure/mongo"
	pginfra "github.com/oksasatya/auth-api/internal/infrastructure/postgres"
)

// Open connects the configured backend. The returned close func is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongoinfra.Connect(ctx, mongoinfra.Config{
			URL:                    cfg.MongoURL,
			MaxPoolSize:            cfg.MongoMaxPoolSize,
			ServerSelectionTimeout: cfg.MongoServerSelectionTimeout,
			SocketTimeout:          cfg.MongoSocketTimeout,
			RetryAttempts:          cfg.MongoConnectRetries,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo := mongoinfra.NewUserRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.WithField("database", cfg.MongoDatabase).Info("mongo store ready")
		return repo, closeFn, nil

	case config.StorePostgres:
		dsn := cfg.PostgresDSN()
		pool, err := pginfra.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, nil, err
		}
		if err := pginfra.Migrate(dsn, cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("postgres store ready")
		return pginfra.NewUserRepository(pool), pool.Close, nil

	case config.StoreMemory:
		logger.Warn("memory store: users are lost on restart")
		return memory.NewUserRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
