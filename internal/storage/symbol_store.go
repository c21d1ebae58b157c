package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SymbolStore persists Symbol rows.
type SymbolStore struct {
	db *sql.DB
}

// NewSymbolStore wraps an open database handle.
func NewSymbolStore(db *sql.DB) *SymbolStore { return &SymbolStore{db: db} }

// PutAll inserts symbols in one batched write (spec §4.1 step 7).
func (s *SymbolStore) PutAll(tx *sql.Tx, symbols []Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO symbols (
			id, branch, name, qualified_name, type, language, file_path,
			start_line, end_line, content, signature, docstring, content_hash,
			is_external, updated_at, revision_id, embedding_model_id
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare symbol insert: %v", ErrStorageWrite, err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		if _, err := stmt.Exec(
			sym.ID, sym.Branch, sym.Name, sym.QualifiedName, string(sym.Type), sym.Language,
			sym.FilePath, sym.StartLine, sym.EndLine, sym.Content, sym.Signature, sym.Docstring,
			sym.ContentHash, boolToInt(sym.IsExternal), sym.UpdatedAt.UTC().Unix(), sym.RevisionID,
			sym.EmbeddingModelID,
		); err != nil {
			return fmt.Errorf("%w: insert symbol %s: %v", ErrStorageWrite, sym.ID, err)
		}
	}
	return nil
}

// ByFile returns every symbol currently stored for (filePath, branch).
func (s *SymbolStore) ByFile(filePath, branch string) ([]Symbol, error) {
	rows, err := s.db.Query(`
		SELECT id, branch, name, qualified_name, type, language, file_path,
		       start_line, end_line, content, signature, docstring, content_hash,
		       is_external, updated_at, revision_id, embedding_model_id
		FROM symbols WHERE file_path = ? AND branch = ?
	`, filePath, branch)
	if err != nil {
		return nil, fmt.Errorf("query symbols by file: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// Get returns one symbol by ID.
func (s *SymbolStore) Get(id, branch string) (*Symbol, error) {
	row := s.db.QueryRow(`
		SELECT id, branch, name, qualified_name, type, language, file_path,
		       start_line, end_line, content, signature, docstring, content_hash,
		       is_external, updated_at, revision_id, embedding_model_id
		FROM symbols WHERE id = ? AND branch = ?
	`, id, branch)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sym, err
}

// GetByIDs returns symbols matching the given IDs (order not preserved).
func (s *SymbolStore) GetByIDs(ids []string, branch string) ([]Symbol, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	args = append(args, branch)
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT id, branch, name, qualified_name, type, language, file_path,
		       start_line, end_line, content, signature, docstring, content_hash,
		       is_external, updated_at, revision_id, embedding_model_id
		FROM symbols WHERE id IN (%s) AND branch = ?
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols by ids: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// DeleteByFile removes all symbols for (filePath, branch) as part of a
// transactional delete-then-insert unit (spec §5 ordering guarantee 1).
func (s *SymbolStore) DeleteByFile(tx *sql.Tx, filePath, branch string) error {
	if _, err := tx.Exec("DELETE FROM symbols WHERE file_path = ? AND branch = ?", filePath, branch); err != nil {
		return fmt.Errorf("%w: delete symbols for %s: %v", ErrStorageWrite, filePath, err)
	}
	return nil
}

// DeleteByBranch removes every symbol in a branch (used by Rebuild).
func (s *SymbolStore) DeleteByBranch(tx *sql.Tx, branch string) error {
	if _, err := tx.Exec("DELETE FROM symbols WHERE branch = ?", branch); err != nil {
		return fmt.Errorf("%w: delete symbols for branch %s: %v", ErrStorageWrite, branch, err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSymbol(row scannable) (*Symbol, error) {
	var sym Symbol
	var symType string
	var isExternal int
	var updatedAt int64
	var signature, docstring, revisionID, embeddingModelID sql.NullString
	if err := row.Scan(
		&sym.ID, &sym.Branch, &sym.Name, &sym.QualifiedName, &symType, &sym.Language, &sym.FilePath,
		&sym.StartLine, &sym.EndLine, &sym.Content, &signature, &docstring, &sym.ContentHash,
		&isExternal, &updatedAt, &revisionID, &embeddingModelID,
	); err != nil {
		return nil, err
	}
	sym.Type = SymbolType(symType)
	sym.IsExternal = isExternal != 0
	sym.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	sym.Signature = signature.String
	sym.Docstring = docstring.String
	sym.RevisionID = revisionID.String
	sym.EmbeddingModelID = embeddingModelID.String
	return &sym, nil
}

func scanSymbols(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, *sym)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func inClause(ids []string) (string, []any) {
	placeholders := ""
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}
	return placeholders, args
}
