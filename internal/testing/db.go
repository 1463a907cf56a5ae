// Package testing provides test helpers shared by latticefold packages.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/aristath/latticefold/internal/database"
)

// NewTestDB creates a migrated reports database in a temporary directory.
// The database is closed when the test ends.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "reports.db"),
		Profile: database.ProfileStandard,
		Name:    "reports",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// GetRawConnection returns the underlying *sql.DB of a test database.
func GetRawConnection(db *database.DB) *sql.DB {
	return db.Conn()
}
