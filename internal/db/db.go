package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/ndhoang/truyendl/internal/config"
	_ "modernc.org/sqlite"
)

var database *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    story_id        TEXT NOT NULL,
    url             TEXT NOT NULL,
    title           TEXT NOT NULL,
    site            TEXT NOT NULL,
    chapters_total  INTEGER DEFAULT 0,
    written         INTEGER DEFAULT 0,
    skipped         INTEGER DEFAULT 0,
    failed          INTEGER DEFAULT 0,
    status          TEXT DEFAULT 'completed',
    output_dir      TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_story ON runs(story_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Init initializes the database connection and schema
func Init() error {
	dbPath := config.GetDBPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	database = db
	return nil
}

// DB returns the database connection
func DB() *sql.DB {
	return database
}

// Close closes the database connection
func Close() error {
	if database != nil {
		return database.Close()
	}
	return nil
}
