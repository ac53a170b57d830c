// Package testutil provides shared test helpers for setting up databases
// and asset directories.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/dagaz/internal/assets"
	"github.com/starford/dagaz/internal/store"
)

// TestDB creates a temporary SQLite board store that is automatically
// cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dagaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAssets creates a temporary asset directory with an assets.FS.
func TestAssets(t *testing.T) (string, *assets.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := assets.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
