// Package store implements the catalog's relational schema and connection
// lifecycle: six base tables, three FTS5 views kept in sync by triggers,
// and the write/read-only connection helpers the build orchestrator and
// tool server use respectively.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"shire/internal/logging"
)

// OpenOrCreate opens (creating if absent) a writable connection at path
// with write-ahead journaling and foreign-key enforcement, and ensures the
// schema exists. SQLite permits only one writer, so the connection pool is
// capped at one.
func OpenOrCreate(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Get(logging.CategoryStore).Info("opened catalog", "path", path)
	return db, nil
}

// OpenReadOnly opens path without write capability, for the tool server.
// It fails if the database file does not exist.
func OpenReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store: catalog does not exist at %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro&_query_only=true")
	if err != nil {
		return nil, fmt.Errorf("store: open readonly: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}

	logging.Get(logging.CategoryStore).Info("opened catalog read-only", "path", path)
	return db, nil
}

// schemaStatements creates every base table, FTS5 view, and sync trigger.
// Each statement is idempotent (IF NOT EXISTS); re-running CreateSchema on
// an existing store is a no-op.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS packages (
		name TEXT PRIMARY KEY,
		path TEXT UNIQUE NOT NULL,
		kind TEXT NOT NULL,
		version TEXT,
		description TEXT,
		metadata TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS dependencies (
		package TEXT NOT NULL REFERENCES packages(name) ON DELETE CASCADE,
		dependency TEXT NOT NULL,
		dep_kind TEXT NOT NULL DEFAULT 'runtime',
		version_req TEXT,
		is_internal INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (package, dependency, dep_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS symbols (
		package TEXT NOT NULL REFERENCES packages(name) ON DELETE CASCADE,
		file_path TEXT NOT NULL,
		name TEXT NOT NULL,
		line INTEGER NOT NULL,
		kind TEXT NOT NULL,
		signature TEXT NOT NULL,
		visibility TEXT NOT NULL,
		parent_symbol TEXT,
		return_type TEXT,
		parameters TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_package ON symbols(package)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_file_path ON symbols(file_path)`,
	`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		package TEXT REFERENCES packages(name) ON DELETE SET NULL,
		extension TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_package ON files(package)`,
	`CREATE TABLE IF NOT EXISTS source_hashes (
		package TEXT PRIMARY KEY REFERENCES packages(name) ON DELETE CASCADE,
		source_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shire_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS packages_fts USING fts5(
		name, description, path, content='packages', content_rowid='rowid'
	)`,
	`CREATE TRIGGER IF NOT EXISTS packages_ai AFTER INSERT ON packages BEGIN
		INSERT INTO packages_fts(rowid, name, description, path) VALUES (new.rowid, new.name, new.description, new.path);
	END`,
	`CREATE TRIGGER IF NOT EXISTS packages_ad AFTER DELETE ON packages BEGIN
		INSERT INTO packages_fts(packages_fts, rowid, name, description, path) VALUES ('delete', old.rowid, old.name, old.description, old.path);
	END`,
	`CREATE TRIGGER IF NOT EXISTS packages_au AFTER UPDATE ON packages BEGIN
		INSERT INTO packages_fts(packages_fts, rowid, name, description, path) VALUES ('delete', old.rowid, old.name, old.description, old.path);
		INSERT INTO packages_fts(rowid, name, description, path) VALUES (new.rowid, new.name, new.description, new.path);
	END`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
		name, signature, parameters, content='symbols', content_rowid='rowid'
	)`,
	`CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
		INSERT INTO symbols_fts(rowid, name, signature, parameters) VALUES (new.rowid, new.name, new.signature, new.parameters);
	END`,
	`CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
		INSERT INTO symbols_fts(symbols_fts, rowid, name, signature, parameters) VALUES ('delete', old.rowid, old.name, old.signature, old.parameters);
	END`,
	`CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
		INSERT INTO symbols_fts(symbols_fts, rowid, name, signature, parameters) VALUES ('delete', old.rowid, old.name, old.signature, old.parameters);
		INSERT INTO symbols_fts(rowid, name, signature, parameters) VALUES (new.rowid, new.name, new.signature, new.parameters);
	END`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
		path, name, content='files', content_rowid='rowid'
	)`,
	`CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
		INSERT INTO files_fts(rowid, path, name) VALUES (new.rowid, new.path, new.path);
	END`,
	`CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
		INSERT INTO files_fts(files_fts, rowid, path, name) VALUES ('delete', old.rowid, old.path, old.path);
	END`,
	`CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE ON files BEGIN
		INSERT INTO files_fts(files_fts, rowid, path, name) VALUES ('delete', old.rowid, old.path, old.path);
		INSERT INTO files_fts(rowid, path, name) VALUES (new.rowid, new.path, new.path);
	END`,
}

// CreateSchema idempotently creates every table, FTS view, and trigger.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: schema statement failed: %w\n%s", err, stmt)
		}
	}
	return nil
}
