package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// FileStore persists FileRecord rows.
type FileStore struct {
	db *sql.DB
}

// NewFileStore wraps an open database handle.
func NewFileStore(db *sql.DB) *FileStore { return &FileStore{db: db} }

// Put upserts one FileRecord.
func (s *FileStore) Put(tx *sql.Tx, rec FileRecord) error {
	_, err := tx.Exec(`
		INSERT INTO files (
			file_path, branch, file_hash, mtime, size, last_indexed, language,
			status, symbol_count, error_message
		) VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (file_path, branch) DO UPDATE SET
			file_hash=excluded.file_hash, mtime=excluded.mtime, size=excluded.size,
			last_indexed=excluded.last_indexed, language=excluded.language,
			status=excluded.status, symbol_count=excluded.symbol_count,
			error_message=excluded.error_message
	`,
		rec.FilePath, rec.Branch, rec.FileHash, rec.Mtime.UTC().Unix(), rec.Size,
		rec.LastIndexed.UTC().Unix(), rec.Language, string(rec.Status), rec.SymbolCount, rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert file %s: %v", ErrStorageWrite, rec.FilePath, err)
	}
	return nil
}

// Get returns one FileRecord, or nil if absent.
func (s *FileStore) Get(filePath, branch string) (*FileRecord, error) {
	row := s.db.QueryRow(`
		SELECT file_path, branch, file_hash, mtime, size, last_indexed, language,
		       status, symbol_count, error_message
		FROM files WHERE file_path = ? AND branch = ?
	`, filePath, branch)
	rec, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// AllForBranch returns every FileRecord in a branch.
func (s *FileStore) AllForBranch(branch string) ([]FileRecord, error) {
	rows, err := s.db.Query(`
		SELECT file_path, branch, file_hash, mtime, size, last_indexed, language,
		       status, symbol_count, error_message
		FROM files WHERE branch = ?
	`, branch)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteByFile removes the FileRecord for (filePath, branch).
func (s *FileStore) DeleteByFile(tx *sql.Tx, filePath, branch string) error {
	if _, err := tx.Exec("DELETE FROM files WHERE file_path = ? AND branch = ?", filePath, branch); err != nil {
		return fmt.Errorf("%w: delete file record %s: %v", ErrStorageWrite, filePath, err)
	}
	return nil
}

// DeleteByBranch removes every FileRecord in a branch (used by Rebuild).
func (s *FileStore) DeleteByBranch(tx *sql.Tx, branch string) error {
	if _, err := tx.Exec("DELETE FROM files WHERE branch = ?", branch); err != nil {
		return fmt.Errorf("%w: delete files for branch %s: %v", ErrStorageWrite, branch, err)
	}
	return nil
}

func scanFileRecord(row scannable) (*FileRecord, error) {
	var rec FileRecord
	var mtime, lastIndexed int64
	var status string
	var language, errMsg sql.NullString
	if err := row.Scan(
		&rec.FilePath, &rec.Branch, &rec.FileHash, &mtime, &rec.Size, &lastIndexed, &language,
		&status, &rec.SymbolCount, &errMsg,
	); err != nil {
		return nil, err
	}
	rec.Mtime = time.Unix(mtime, 0).UTC()
	rec.LastIndexed = time.Unix(lastIndexed, 0).UTC()
	rec.Language = language.String
	rec.Status = FileStatus(status)
	rec.ErrorMessage = errMsg.String
	return &rec, nil
}
