// Package rerank implements the optional reranking stage of spec §4.3:
// simple heuristic, BM25 recompute, and remote-service reranking with a
// BM25 fallback, each operating on the same candidate shape.
package rerank

import (
	"context"
)

// Candidate is one ranked-list item passed into a Reranker.
type Candidate struct {
	ID           string
	Content      string
	FilePath     string
	InitialScore float64
	Granularity  string
	StartLine    int
	EndLine      int
}

// Ranked is a Candidate with its post-rerank score.
type Ranked struct {
	Candidate
	FinalScore float64
}

// Reranker reorders candidates for query, returning an identically-shaped
// list with FinalScore replacing InitialScore.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, query string, candidates []Candidate, limit int) ([]Ranked, error)
}

// snapshotLines captures (start_line, end_line) by id so callers can restore
// them after a reranker that drops those fields (spec §4.3 step 8).
func snapshotLines(candidates []Candidate) map[string][2]int {
	snap := make(map[string][2]int, len(candidates))
	for _, c := range candidates {
		snap[c.ID] = [2]int{c.StartLine, c.EndLine}
	}
	return snap
}

// RestoreLines backfills StartLine/EndLine on ranked from a snapshot taken
// before reranking.
func RestoreLines(ranked []Ranked, snapshot map[string][2]int) {
	for i := range ranked {
		if lines, ok := snapshot[ranked[i].ID]; ok {
			ranked[i].StartLine = lines[0]
			ranked[i].EndLine = lines[1]
		}
	}
}

// Snapshot is exported for callers (internal/search) that need to capture
// line ranges before invoking a Reranker.
func Snapshot(candidates []Candidate) map[string][2]int {
	return snapshotLines(candidates)
}
