package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fc-go/internal/config"
	"fc-go/internal/database/migrations"
	"fc-go/internal/fc"
)

// storeFileName is the name of the live store file inside the data directory.
const storeFileName = "comparator.db"

// NewStoreFromConfig creates a Store based on the database config type,
// migrates it to the latest schema and applies the default-settings seed.
func NewStoreFromConfig(cfg config.DatabaseConfig, clock fc.Clock) (*SQLiteStore, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, storeFileName)
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	store, err := NewSQLiteStore(path, clock)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(store.db); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating store schema: %w", err)
	}

	if err := store.SeedDefaults(); err != nil {
		store.Close()
		return nil, fmt.Errorf("seeding default settings: %w", err)
	}

	return store, nil
}
