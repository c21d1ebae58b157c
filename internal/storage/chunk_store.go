package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// ChunkStore persists Chunk rows.
type ChunkStore struct {
	db *sql.DB
}

// NewChunkStore wraps an open database handle.
func NewChunkStore(db *sql.DB) *ChunkStore { return &ChunkStore{db: db} }

// PutAll inserts chunks in one batched write.
func (s *ChunkStore) PutAll(tx *sql.Tx, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO chunks (
			id, branch, file_path, start_line, end_line, content, chunk_type,
			parent_symbol_id, language, content_hash, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare chunk insert: %v", ErrStorageWrite, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		var parent any
		if c.ParentSymbolID != "" {
			parent = c.ParentSymbolID
		}
		if _, err := stmt.Exec(
			c.ID, c.Branch, c.FilePath, c.StartLine, c.EndLine, c.Content, string(c.ChunkType),
			parent, c.Language, c.ContentHash, c.UpdatedAt.UTC().Unix(),
		); err != nil {
			return fmt.Errorf("%w: insert chunk %s: %v", ErrStorageWrite, c.ID, err)
		}
	}
	return nil
}

// ByFile returns every chunk stored for (filePath, branch).
func (s *ChunkStore) ByFile(filePath, branch string) ([]Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, branch, file_path, start_line, end_line, content, chunk_type,
		       parent_symbol_id, language, content_hash, updated_at
		FROM chunks WHERE file_path = ? AND branch = ?
	`, filePath, branch)
	if err != nil {
		return nil, fmt.Errorf("query chunks by file: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetByIDs returns chunks matching the given IDs.
func (s *ChunkStore) GetByIDs(ids []string, branch string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	args = append(args, branch)
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT id, branch, file_path, start_line, end_line, content, chunk_type,
		       parent_symbol_id, language, content_hash, updated_at
		FROM chunks WHERE id IN (%s) AND branch = ?
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks by ids: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteByFile removes all chunks for (filePath, branch).
func (s *ChunkStore) DeleteByFile(tx *sql.Tx, filePath, branch string) error {
	if _, err := tx.Exec("DELETE FROM chunks WHERE file_path = ? AND branch = ?", filePath, branch); err != nil {
		return fmt.Errorf("%w: delete chunks for %s: %v", ErrStorageWrite, filePath, err)
	}
	return nil
}

// DeleteByBranch removes every chunk in a branch (used by Rebuild).
func (s *ChunkStore) DeleteByBranch(tx *sql.Tx, branch string) error {
	if _, err := tx.Exec("DELETE FROM chunks WHERE branch = ?", branch); err != nil {
		return fmt.Errorf("%w: delete chunks for branch %s: %v", ErrStorageWrite, branch, err)
	}
	return nil
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	var out []Chunk
	for rows.Next() {
		var c Chunk
		var chunkType string
		var updatedAt int64
		var parent, language sql.NullString
		if err := rows.Scan(
			&c.ID, &c.Branch, &c.FilePath, &c.StartLine, &c.EndLine, &c.Content, &chunkType,
			&parent, &language, &c.ContentHash, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.ChunkType = ChunkType(chunkType)
		c.ParentSymbolID = parent.String
		c.Language = language.String
		c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}
