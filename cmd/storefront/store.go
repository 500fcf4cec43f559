package main

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/repository/memory"
	"go.uber.org/zap"
)

// openStore connects to the configured database and brings its schema up to
// date.
func openStore(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (repository.Store, error) {
	if cfg.Driver == "memory" {
		logger.Warn("Using the in-memory store; data is lost on exit")
		return memory.New(), nil
	}

	store, err := repository.NewGormStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", cfg.Driver, err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.String("host", cfg.Host))
	return store, nil
}
