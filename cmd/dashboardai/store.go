package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dashboardai/dashboardai/internal/config"
	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

// openStore opens the key-value backend named by cfg.Driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (kvstore.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return kvstore.NewMemory(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("dashboardai: create %s: %w", dir, err)
			}
		}
		return kvstore.OpenSQLite(ctx, cfg.SQLitePath)
	case "mongo":
		return kvstore.OpenMongo(ctx, kvstore.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("dashboardai: unsupported storage driver %q", cfg.Driver)
	}
}
