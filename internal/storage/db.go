package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Paths mirrors spec §6's fixed workspace storage layout.
type Paths struct {
	DBPath    string // {workspace}/.opencode/code-intel/index.db
	CachePath string // {workspace}/.opencode/code-intel/cache.json
	FTSPath   string // {workspace}/.opencode/code-intel/fts.bleve
}

// DefaultPaths returns the fixed, non-configurable storage layout for a
// workspace root.
func DefaultPaths(workspaceRoot string) Paths {
	base := filepath.Join(workspaceRoot, ".opencode", "code-intel")
	return Paths{
		DBPath:    filepath.Join(base, "index.db"),
		CachePath: filepath.Join(base, "cache.json"),
		FTSPath:   filepath.Join(base, "fts.bleve"),
	}
}

// Store bundles every storage-layer component behind the workspace's single
// sqlite connection plus its bleve FTS index.
type Store struct {
	DB       *sql.DB
	Symbols  *SymbolStore
	Chunks   *ChunkStore
	Files    *FileStore
	Edges    *EdgeStore
	Meta     *MetaStore
	RepoMap  *RepoMapStore
	Vectors  *VectorStore
	FTS      *FTSStore
}

// Open creates (if needed) and opens the database and FTS index at paths,
// applying schema migrations. WAL mode is enabled so reads proceed
// concurrently with the single serialized writer (spec §5).
func Open(paths Paths, embeddingDimensions int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(paths.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace storage dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", paths.DBPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: one writer; reads interleave via WAL

	if err := CreateSchema(db, embeddingDimensions); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	fts, err := OpenFTSStore(paths.FTSPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open fts store: %w", err)
	}

	return &Store{
		DB:      db,
		Symbols: NewSymbolStore(db),
		Chunks:  NewChunkStore(db),
		Files:   NewFileStore(db),
		Edges:   NewEdgeStore(db),
		Meta:    NewMetaStore(db),
		RepoMap: NewRepoMapStore(db),
		Vectors: NewVectorStore(db),
		FTS:     fts,
	}, nil
}

// Close releases the database connection and FTS index.
func (s *Store) Close() error {
	ftsErr := s.FTS.Close()
	dbErr := s.DB.Close()
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	if ftsErr != nil {
		return fmt.Errorf("close fts store: %w", ftsErr)
	}
	return nil
}

// DeleteFileCascade removes every row for (filePath, branch) across symbols,
// chunks, files, edges, vectors and FTS — Invariant 1 and 5. It is the
// transactional unit referenced by spec §5 ordering guarantee 1: either the
// prior content is fully visible or the new content is, never a partial mix.
func (s *Store) DeleteFileCascade(filePath, branch string) error {
	symbols, err := s.Symbols.ByFile(filePath, branch)
	if err != nil {
		return fmt.Errorf("load symbols for delete: %w", err)
	}
	chunks, err := s.Chunks.ByFile(filePath, branch)
	if err != nil {
		return fmt.Errorf("load chunks for delete: %w", err)
	}

	staleSymbolIDs := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		staleSymbolIDs = append(staleSymbolIDs, sym.ID)
	}
	contentIDs := make([]string, 0, len(symbols)+len(chunks))
	for _, sym := range symbols {
		contentIDs = append(contentIDs, sym.ID)
	}
	for _, c := range chunks {
		contentIDs = append(contentIDs, c.ID)
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin file cascade delete: %v", ErrStorageWrite, err)
	}
	defer tx.Rollback()

	if err := s.Symbols.DeleteByFile(tx, filePath, branch); err != nil {
		return err
	}
	if err := s.Chunks.DeleteByFile(tx, filePath, branch); err != nil {
		return err
	}
	if err := s.Edges.DeleteByEndpoints(tx, staleSymbolIDs, branch); err != nil {
		return err
	}
	if err := s.Files.DeleteByFile(tx, filePath, branch); err != nil {
		return err
	}
	if err := s.Vectors.DeleteByContentIDs(tx, contentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit file cascade delete: %v", ErrStorageWrite, err)
	}

	return s.FTS.DeleteByFile(branch, filePath)
}

// DeleteBranchCascade removes every row for branch across all tables and the
// FTS index (used by Rebuild).
func (s *Store) DeleteBranchCascade(branch string) error {
	// js_vectors carries no branch column (spec §6), so content IDs owned by
	// this branch must be gathered before the symbol/chunk rows that name
	// them are deleted.
	symbols, err := allSymbolIDsForBranch(s.DB, branch)
	if err != nil {
		return fmt.Errorf("load symbol ids for branch delete: %w", err)
	}
	chunks, err := allChunkIDsForBranch(s.DB, branch)
	if err != nil {
		return fmt.Errorf("load chunk ids for branch delete: %w", err)
	}
	contentIDs := append(symbols, chunks...)
	files, err := s.Files.AllForBranch(branch)
	if err != nil {
		return fmt.Errorf("load files for branch delete: %w", err)
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin branch cascade delete: %v", ErrStorageWrite, err)
	}
	defer tx.Rollback()

	if err := s.Symbols.DeleteByBranch(tx, branch); err != nil {
		return err
	}
	if err := s.Chunks.DeleteByBranch(tx, branch); err != nil {
		return err
	}
	if err := s.Edges.DeleteByBranch(tx, branch); err != nil {
		return err
	}
	if err := s.Files.DeleteByBranch(tx, branch); err != nil {
		return err
	}
	if err := s.Vectors.DeleteByContentIDs(tx, contentIDs); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM repo_map WHERE branch = ?", branch); err != nil {
		return fmt.Errorf("%w: clear repo_map for %s: %v", ErrStorageWrite, branch, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit branch cascade delete: %v", ErrStorageWrite, err)
	}
	for _, f := range files {
		if err := s.FTS.DeleteByFile(branch, f.FilePath); err != nil {
			return err
		}
	}
	return nil
}

func allSymbolIDsForBranch(db *sql.DB, branch string) ([]string, error) {
	rows, err := db.Query("SELECT id FROM symbols WHERE branch = ?", branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func allChunkIDsForBranch(db *sql.DB, branch string) ([]string, error) {
	rows, err := db.Query("SELECT id FROM chunks WHERE branch = ?", branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
