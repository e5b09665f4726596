// Package testing provides testing utilities and helpers for the opto project.
package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/opto-ai/opto/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database in a per-test temp dir and
// applies the embedded schema registered under name. Unknown names get an
// empty database. The database is closed when the test ends.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), fmt.Sprintf("%s.db", name)),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	return db
}

// NewTestDBWithSchema creates a test database and executes schema on it
func NewTestDBWithSchema(t *testing.T, name string, schema string) *database.DB {
	t.Helper()

	db := NewTestDB(t, name)
	if _, err := db.Conn().Exec(schema); err != nil {
		t.Fatalf("Failed to apply schema to test database %s: %v", name, err)
	}
	return db
}
