// Package db provides the schema bootstrap for the projects and items
// tables.
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Timestamps are stored as Unix milliseconds so that recent-first
// ordering stays deterministic without parsing text dates.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT,
	type TEXT NOT NULL,
	source TEXT,
	tags TEXT,     -- JSON array as text
	metadata TEXT, -- JSON object as text
	thumbnail TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_project_id ON items(project_id);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
`

// Bootstrap creates the tables and indexes if they are absent and seeds
// the default catalog on a fresh database. Safe to call on every start.
func Bootstrap(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("failed to seed default data: %w", err)
	}
	return nil
}

type seedProject struct {
	name, description string
}

type seedItem struct {
	projectID         int64
	name, description string
	itemType          string
	source            string // empty means NULL
	tags              string // JSON array as stored
}

var defaultProjects = []seedProject{
	{"Web Development", "Resources for web development projects"},
	{"Design Resources", "UI/UX design inspiration and assets"},
	{"Learning Materials", "Educational content and tutorials"},
}

var defaultItems = []seedItem{
	{1, "React Documentation", "Official React documentation for learning and reference",
		"url", "https://react.dev", `["react","documentation","frontend"]`},
	{1, "TypeScript Guide", "Complete guide to TypeScript programming",
		"url", "https://www.typescriptlang.org/docs/", `["typescript","programming","guide"]`},
	{2, "Design System Examples", "Collection of modern design systems",
		"url", "https://designsystemsrepo.com", `["design","ui","inspiration"]`},
	{3, "API Best Practices", "Guidelines for building REST APIs",
		"note", "", `["api","backend","best-practices"]`},
}

// seedDefaults inserts the first-run example catalog when the projects
// table is empty. Runs in one transaction so a crash mid-seed leaves a
// clean slate for the next start.
func seedDefaults(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()

	for _, p := range defaultProjects {
		if _, err := tx.Exec(
			`INSERT INTO projects (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			p.name, p.description, now, now,
		); err != nil {
			return err
		}
	}

	for _, it := range defaultItems {
		source := sql.NullString{String: it.source, Valid: it.source != ""}
		if _, err := tx.Exec(
			`INSERT INTO items (project_id, name, description, type, source, tags, metadata, thumbnail, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
			it.projectID, it.name, it.description, it.itemType, source, it.tags, now, now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
