package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	schemaVersion     = "1.0"
	defaultDimensions = 384
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	file_path     TEXT NOT NULL,
	branch        TEXT NOT NULL,
	file_hash     TEXT NOT NULL,
	mtime         INTEGER NOT NULL,
	size          INTEGER NOT NULL,
	last_indexed  INTEGER NOT NULL,
	language      TEXT,
	status        TEXT NOT NULL,
	symbol_count  INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	PRIMARY KEY (file_path, branch)
)`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	id                 TEXT NOT NULL,
	branch             TEXT NOT NULL,
	name               TEXT NOT NULL,
	qualified_name     TEXT NOT NULL,
	type               TEXT NOT NULL,
	language           TEXT,
	file_path          TEXT NOT NULL,
	start_line         INTEGER NOT NULL,
	end_line           INTEGER NOT NULL,
	content            TEXT NOT NULL,
	signature          TEXT,
	docstring          TEXT,
	content_hash       TEXT NOT NULL,
	is_external        INTEGER NOT NULL DEFAULT 0,
	updated_at         INTEGER NOT NULL,
	revision_id        TEXT,
	embedding_model_id TEXT,
	PRIMARY KEY (id, branch)
)`

const createChunksTable = `
CREATE TABLE IF NOT EXISTS chunks (
	id               TEXT NOT NULL,
	branch           TEXT NOT NULL,
	file_path        TEXT NOT NULL,
	start_line       INTEGER NOT NULL,
	end_line         INTEGER NOT NULL,
	content          TEXT NOT NULL,
	chunk_type       TEXT NOT NULL,
	parent_symbol_id TEXT,
	language         TEXT,
	content_hash     TEXT NOT NULL,
	updated_at       INTEGER NOT NULL,
	PRIMARY KEY (id, branch)
)`

const createEdgesTable = `
CREATE TABLE IF NOT EXISTS edges (
	source_symbol_id TEXT NOT NULL,
	target_symbol_id TEXT NOT NULL,
	type             TEXT NOT NULL,
	branch           TEXT NOT NULL,
	confidence       REAL NOT NULL DEFAULT 1.0,
	PRIMARY KEY (source_symbol_id, target_symbol_id, type, branch)
)`

const createRepoMapTable = `
CREATE TABLE IF NOT EXISTS repo_map (
	symbol_id  TEXT NOT NULL,
	branch     TEXT NOT NULL,
	rank       REAL NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (symbol_id, branch)
)`

const createMetaTable = `
CREATE TABLE IF NOT EXISTS meta (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path, branch)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file_path, branch)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_symbol_id, branch)",
		"CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_symbol_id, branch)",
		"CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_symbol_id, branch)",
		"CREATE INDEX IF NOT EXISTS idx_files_branch ON files(branch)",
	}
}

// CreateSchema creates all tables and indexes for the unified index database.
// Uses a transaction for atomicity: all schema creation succeeds or fails
// together. The vector virtual table is created separately because sqlite-vec
// virtual tables cannot be created inside a transaction alongside ordinary
// tables on some builds.
func CreateSchema(db *sql.DB, dimensions int) error {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"symbols", createSymbolsTable},
		{"chunks", createChunksTable},
		{"edges", createEdgesTable},
		{"repo_map", createRepoMapTable},
		{"meta", createMetaTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	if err := CreateVectorIndex(db, dimensions); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return bootstrapMeta(db, dimensions)
}

func bootstrapMeta(db *sql.DB, dimensions int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin metadata transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Unix()
	bootstrap := `
		INSERT OR IGNORE INTO meta (key, value, updated_at) VALUES
			(?, ?, ?),
			(?, ?, ?)
	`
	if _, err := tx.Exec(bootstrap,
		MetaSchemaVersion, schemaVersion, now,
		MetaLastFullIndexedAt, "", now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap meta: %w", err)
	}

	return tx.Commit()
}

// GetSchemaVersion returns the recorded schema version, or "0" for a
// database that has not been initialized yet.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var exists int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'",
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("failed to check meta table: %w", err)
	}
	if exists == 0 {
		return "0", nil
	}

	var version string
	err := db.QueryRow("SELECT value FROM meta WHERE key = ?", MetaSchemaVersion).Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
