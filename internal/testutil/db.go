package testutil

import (
	"database/sql"
	"testing"

	"reviewhub/pkg/database"
)

// OpenDB returns a migrated in-memory sqlite database that is torn down with
// the test.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
