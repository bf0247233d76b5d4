// Package testing provides test helpers shared across folio packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/folio/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a temp directory and
// applies the embedded schema registered for name ("ledger", "client_data").
// Unknown names get an empty database. The database is closed on test cleanup.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	switch name {
	case database.NameLedger:
		profile = database.ProfileLedger
	case database.NameClientData:
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
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
