package database

import (
	"database/sql"
	"fmt"
	stdlog "log"

	"github.com/username/customsdash/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

const createTableStatement = `
CREATE TABLE IF NOT EXISTS dataset_sources (
	dataset_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	size INTEGER NOT NULL,
	content BLOB NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitDB opens the database, ensures the schema and sets DB. It exits the
// process when the database cannot be prepared.
func InitDB(databasePath string) {
	db, err := Open(databasePath)
	if err != nil {
		stdlog.Fatalf("failed to prepare database at %s: %v", databasePath, err)
	}
	DB = db
}

// Open opens a sqlite database at databasePath and ensures its tables exist.
func Open(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	// A single connection keeps ":memory:" databases shared across callers.
	db.SetMaxOpenConns(1)

	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	migrateSourcesTable(db)

	if _, err := db.Exec(createTableStatement); err != nil {
		db.Close()
		logger.L.Error("failed to create tables", "error", err)
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logger.L.Info("Database tables ensured/created.")
	return db, nil
}

// migrateSourcesTable adds columns introduced after the first release of the
// dataset_sources table.
func migrateSourcesTable(db *sql.DB) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='dataset_sources'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.L.Info("dataset_sources table does not exist, no migration needed as table will be created.")
			return
		}
		logger.L.Error("Error checking for dataset_sources table", "error", err)
		return
	}

	rows, err := db.Query("PRAGMA table_info(dataset_sources)")
	if err != nil {
		logger.L.Error("Error querying table schema for dataset_sources", "error", err)
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk, notnull int
		var name, dataType string
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnull, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info for dataset_sources", "error", err)
			return
		}
		columnExists[name] = true
	}
	if err := rows.Err(); err != nil {
		logger.L.Error("Error iterating over column info for dataset_sources", "error", err)
		return
	}

	if !columnExists["kind"] {
		if _, err := db.Exec("ALTER TABLE dataset_sources ADD COLUMN kind TEXT NOT NULL DEFAULT 'csv'"); err != nil {
			logger.L.Error("Error adding 'kind' column to dataset_sources", "error", err)
		} else {
			logger.L.Info("Added 'kind' column to dataset_sources")
		}
	}
	if !columnExists["size"] {
		if _, err := db.Exec("ALTER TABLE dataset_sources ADD COLUMN size INTEGER NOT NULL DEFAULT 0"); err != nil {
			logger.L.Error("Error adding 'size' column to dataset_sources", "error", err)
		} else {
			logger.L.Info("Added 'size' column to dataset_sources")
		}
	}
}
