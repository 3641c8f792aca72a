package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/streams.db")
	if !strings.HasPrefix(dsn, "file:/tmp/streams.db?") {
		t.Errorf("DSN = %q", dsn)
	}
	for _, want := range []string{"_busy_timeout=5000", "_journal_mode=WAL"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %s", dsn, want)
		}
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.db")

	gdb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []string{"streams", "commits"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("table %s not created", table)
		}
	}
}
