package storage

import (
	"database/sql"
	"fmt"
)

// EdgeStore persists symbol-to-symbol Edge rows.
type EdgeStore struct {
	db *sql.DB
}

// NewEdgeStore wraps an open database handle.
func NewEdgeStore(db *sql.DB) *EdgeStore { return &EdgeStore{db: db} }

// PutAll inserts edges in one batched write.
func (s *EdgeStore) PutAll(tx *sql.Tx, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO edges (source_symbol_id, target_symbol_id, type, branch, confidence)
		VALUES (?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare edge insert: %v", ErrStorageWrite, err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.Exec(e.SourceSymbolID, e.TargetSymbolID, string(e.Type), e.Branch, e.Confidence); err != nil {
			return fmt.Errorf("%w: insert edge %s->%s: %v", ErrStorageWrite, e.SourceSymbolID, e.TargetSymbolID, err)
		}
	}
	return nil
}

// DeleteByEndpoints removes every edge whose source or target is in
// symbolIDs, within branch (spec §4.1 step 6: "edges whose endpoint is any
// stale symbol").
func (s *EdgeStore) DeleteByEndpoints(tx *sql.Tx, symbolIDs []string, branch string) error {
	if len(symbolIDs) == 0 {
		return nil
	}
	placeholders, _ := inClause(symbolIDs)

	query := fmt.Sprintf(`
		DELETE FROM edges
		WHERE branch = ? AND (source_symbol_id IN (%s) OR target_symbol_id IN (%s))
	`, placeholders, placeholders)

	args := make([]any, 0, len(symbolIDs)*2+1)
	args = append(args, branch)
	for _, id := range symbolIDs {
		args = append(args, id)
	}
	for _, id := range symbolIDs {
		args = append(args, id)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("%w: delete edges for endpoints: %v", ErrStorageWrite, err)
	}
	return nil
}

// DeleteByBranch removes every edge in a branch (used by Rebuild).
func (s *EdgeStore) DeleteByBranch(tx *sql.Tx, branch string) error {
	if _, err := tx.Exec("DELETE FROM edges WHERE branch = ?", branch); err != nil {
		return fmt.Errorf("%w: delete edges for branch %s: %v", ErrStorageWrite, branch, err)
	}
	return nil
}

// AllForBranch returns every edge in a branch, used by internal/graphidx to
// build the PageRank adjacency structure.
func (s *EdgeStore) AllForBranch(branch string) ([]Edge, error) {
	rows, err := s.db.Query(`
		SELECT source_symbol_id, target_symbol_id, type, branch, confidence
		FROM edges WHERE branch = ?
	`, branch)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		var edgeType string
		if err := rows.Scan(&e.SourceSymbolID, &e.TargetSymbolID, &edgeType, &e.Branch, &e.Confidence); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Type = EdgeType(edgeType)
		out = append(out, e)
	}
	return out, rows.Err()
}
