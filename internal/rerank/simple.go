package rerank

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// SimpleReranker reorders by a cheap heuristic: initial_score plus a boost
// for file-path term matches and identifier-frequency in content, per spec
// §4.3's "simple" reranker description.
type SimpleReranker struct{}

// NewSimple returns a SimpleReranker.
func NewSimple() *SimpleReranker { return &SimpleReranker{} }

func (r *SimpleReranker) Name() string { return "simple" }

func (r *SimpleReranker) Rerank(ctx context.Context, query string, candidates []Candidate, limit int) ([]Ranked, error) {
	terms := bm25Tokenize(query)
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		score := c.InitialScore
		base := strings.ToLower(filepath.Base(c.FilePath))
		contentLower := strings.ToLower(c.Content)
		for _, term := range terms {
			if strings.Contains(base, term) {
				score += 0.3
			}
			score += 0.05 * float64(strings.Count(contentLower, term))
		}
		ranked[i] = Ranked{Candidate: c, FinalScore: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].FinalScore > ranked[j].FinalScore })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
