package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a sqlite DSN for the given database file. busy_timeout makes
// concurrent writers from separate processes queue instead of failing, and
// WAL lets readers proceed while a writer holds the database.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
}

// Open opens a GORM connection to the per-project sqlite database file.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db: database path is required")
	}
	gdb, err := gorm.Open(sqlite.Open(DSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	return gdb, nil
}
