package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// MetaStore persists global, single-row-per-key metadata (current embedding
// model ID, schema version, last full-index timestamp).
type MetaStore struct {
	db *sql.DB
}

// NewMetaStore wraps an open database handle.
func NewMetaStore(db *sql.DB) *MetaStore { return &MetaStore{db: db} }

// Get returns the value for key, and ok=false if unset.
func (s *MetaStore) Get(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts one key.
func (s *MetaStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("%w: set meta %s: %v", ErrStorageWrite, key, err)
	}
	return nil
}

// RepoMapStore persists PageRank output (internal/graphidx).
type RepoMapStore struct {
	db *sql.DB
}

// NewRepoMapStore wraps an open database handle.
func NewRepoMapStore(db *sql.DB) *RepoMapStore { return &RepoMapStore{db: db} }

// ReplaceBranch atomically replaces every repo_map row for a branch.
func (s *RepoMapStore) ReplaceBranch(branch string, rows []RepoMapRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin repo_map replace: %v", ErrStorageWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM repo_map WHERE branch = ?", branch); err != nil {
		return fmt.Errorf("%w: clear repo_map for %s: %v", ErrStorageWrite, branch, err)
	}

	stmt, err := tx.Prepare("INSERT INTO repo_map (symbol_id, branch, rank, updated_at) VALUES (?,?,?,?)")
	if err != nil {
		return fmt.Errorf("%w: prepare repo_map insert: %v", ErrStorageWrite, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for _, row := range rows {
		if _, err := stmt.Exec(row.SymbolID, branch, row.Rank, now); err != nil {
			return fmt.Errorf("%w: insert repo_map row %s: %v", ErrStorageWrite, row.SymbolID, err)
		}
	}
	return tx.Commit()
}

// Rank returns the PageRank score for one symbol, or 0 if absent.
func (s *RepoMapStore) Rank(symbolID, branch string) (float64, error) {
	var rank float64
	err := s.db.QueryRow("SELECT rank FROM repo_map WHERE symbol_id = ? AND branch = ?", symbolID, branch).Scan(&rank)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get repo_map rank: %w", err)
	}
	return rank, nil
}
