package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/playperu/scoreboard/internal/database"
)

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scoreboard.db")

	db, err := database.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("reading journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
