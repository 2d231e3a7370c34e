// Package db provides database connection management and the repository
// over the projects and items tables.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "infovault.db"

// DB wraps the sql.DB with InfoVault-specific configuration.
type DB struct {
	*sql.DB
	path string
}

// Open opens the SQLite database inside dataDir, creating the directory
// and file on first run. The database is opened with:
// - WAL mode for concurrent reads during writes
// - foreign key constraints enabled
// - a single writer connection (SQLite has one writer at a time)
// Failure here is fatal to the process; there is nothing to serve
// without the store.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	return &DB{DB: sqlDB, path: dbPath}, nil
}

// Path returns the location of the database file.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
