package testutil

import (
	"testing"

	"fc-go/internal/database"
	"fc-go/internal/database/migrations"
	"fc-go/internal/fc"
)

// NewTestStore creates a new in-memory SQLite store with schema applied and
// defaults seeded. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T, clock fc.Clock) *database.SQLiteStore {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(sqlDB, clock)
	if err := store.SeedDefaults(); err != nil {
		store.Close()
		t.Fatalf("failed to seed defaults: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
