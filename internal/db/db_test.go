package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMigrateIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "garden.db")
	conn, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(conn); err != nil {
			t.Fatalf("migrate run %d: %v", i, err)
		}
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('posts','moments','join_requests','users')`).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 collection tables, got %d", n)
	}
}
