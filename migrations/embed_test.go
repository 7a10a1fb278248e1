package migrations

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/database"
)

func TestFS_AppliesCleanly(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='devices'",
	).Scan(&count); err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Fatal("devices table not created")
	}

	if err := db.MigrateDown(ctx, FS); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
}
