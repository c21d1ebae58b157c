package storage

import (
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Registers the sqlite-vec extension with all future connections.
	sqlite_vec.Auto()
}

// CreateVectorIndex creates the js_vectors virtual table used for k-nearest-
// neighbor cosine search. It does not store content, only the embedding
// keyed by content_id; joins against symbols/chunks resolve full rows.
func CreateVectorIndex(db *sql.DB, dimensions int) error {
	createSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS js_vectors USING vec0(
			content_id TEXT PRIMARY KEY,
			embedding  float[%d]
		)
	`, dimensions)
	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

// VectorStore persists one embedding per content_id (Invariant 3: a vector
// row exists iff an embedding was successfully produced).
type VectorStore struct {
	db *sql.DB
}

// NewVectorStore wraps an open database handle.
func NewVectorStore(db *sql.DB) *VectorStore {
	return &VectorStore{db: db}
}

// Put upserts one vector row. sqlite-vec's vec0 virtual tables do not support
// INSERT OR REPLACE, so this deletes then inserts.
func (s *VectorStore) Put(row VectorRow) error {
	return s.PutAll([]VectorRow{row})
}

// PutAll upserts many vector rows in a single transaction.
func (s *VectorStore) PutAll(rows []VectorRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin vector upsert: %v", ErrStorageWrite, err)
	}
	defer tx.Rollback()

	deleteStmt, err := tx.Prepare("DELETE FROM js_vectors WHERE content_id = ?")
	if err != nil {
		return fmt.Errorf("%w: prepare vector delete: %v", ErrStorageWrite, err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.Prepare("INSERT INTO js_vectors (content_id, embedding) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare vector insert: %v", ErrStorageWrite, err)
	}
	defer insertStmt.Close()

	for _, row := range rows {
		if _, err := deleteStmt.Exec(row.ContentID); err != nil {
			return fmt.Errorf("%w: delete vector %s: %v", ErrStorageWrite, row.ContentID, err)
		}
		blob, err := sqlite_vec.SerializeFloat32(row.Embedding)
		if err != nil {
			return fmt.Errorf("%w: serialize embedding %s: %v", ErrStorageWrite, row.ContentID, err)
		}
		if _, err := insertStmt.Exec(row.ContentID, blob); err != nil {
			return fmt.Errorf("%w: insert vector %s: %v", ErrStorageWrite, row.ContentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit vector upsert: %v", ErrStorageWrite, err)
	}
	return nil
}

// Get returns the embedding for one content_id, or ok=false if absent.
func (s *VectorStore) Get(contentID string) (embedding []float32, ok bool, err error) {
	var blob []byte
	err = s.db.QueryRow("SELECT embedding FROM js_vectors WHERE content_id = ?", contentID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get vector %s: %w", contentID, err)
	}
	vec, err := sqlite_vec.Float32FromBytes(blob)
	if err != nil {
		return nil, false, fmt.Errorf("decode vector %s: %w", contentID, err)
	}
	return vec, true, nil
}

// DeleteByContentIDs removes vectors for the given content IDs. Used when
// stale symbols/chunks are deleted during reindexing.
func (s *VectorStore) DeleteByContentIDs(tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.Prepare("DELETE FROM js_vectors WHERE content_id = ?")
	if err != nil {
		return fmt.Errorf("%w: prepare vector delete: %v", ErrStorageWrite, err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("%w: delete vector %s: %v", ErrStorageWrite, id, err)
		}
	}
	return nil
}

// Clear wipes every vector row in the database, used on embedding model
// rotation (spec §4.1: switching embedding_model_id invalidates every vector).
func (s *VectorStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM js_vectors"); err != nil {
		return fmt.Errorf("%w: clear vectors: %v", ErrStorageWrite, err)
	}
	return nil
}

// VectorMatch is a single KNN search result.
type VectorMatch struct {
	ContentID  string
	Similarity float64
}

// Search returns the top-k nearest neighbors by cosine similarity. Because
// js_vectors carries no granularity or branch column (spec §6 limits the
// table to content_id/embedding), callers join against Chunk/Symbol metadata
// to filter by branch and granularity after over-fetching.
func (s *VectorStore) Search(query []float32, limit int) ([]VectorMatch, error) {
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT content_id, distance
		FROM js_vectors
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, blob, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var m VectorMatch
		var distance float64
		if err := rows.Scan(&m.ContentID, &distance); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		// vec0 returns L2 distance over normalized vectors; convert to a
		// cosine-similarity-like score in [0,1] for RRF and MIN_SIMILARITY
		// thresholding.
		m.Similarity = 1.0 - (distance * distance / 2.0)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
