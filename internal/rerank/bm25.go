package rerank

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// BM25 standard tuning constants (Robertson/Sparck Jones).
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var bm25TokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

func bm25Tokenize(s string) []string {
	return bm25TokenRe.FindAllString(strings.ToLower(s), -1)
}

// BM25Reranker recomputes BM25 over the candidate set's own content instead
// of relying on the FTS engine's ranking, per spec §4.3's "recomputes BM25
// on (query, content) for the candidate set".
type BM25Reranker struct{}

// NewBM25 returns a BM25Reranker.
func NewBM25() *BM25Reranker { return &BM25Reranker{} }

func (r *BM25Reranker) Name() string { return "bm25" }

func (r *BM25Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, limit int) ([]Ranked, error) {
	queryTerms := bm25Tokenize(query)
	if len(queryTerms) == 0 || len(candidates) == 0 {
		return passthrough(candidates), nil
	}

	docs := make([][]string, len(candidates))
	var totalLen int
	df := map[string]int{}
	for i, c := range candidates {
		toks := bm25Tokenize(c.Content)
		docs[i] = toks
		totalLen += len(toks)
		seen := map[string]bool{}
		for _, t := range toks {
			seen[t] = true
		}
		for t := range seen {
			df[t]++
		}
	}
	avgDocLen := float64(totalLen) / float64(len(candidates))
	n := float64(len(candidates))

	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		tf := map[string]int{}
		for _, t := range docs[i] {
			tf[t]++
		}
		docLen := float64(len(docs[i]))
		var score float64
		for _, qt := range queryTerms {
			f := float64(tf[qt])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[qt])+0.5)/(float64(df[qt])+0.5))
			score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgDocLen))
		}
		ranked[i] = Ranked{Candidate: c, FinalScore: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].FinalScore > ranked[j].FinalScore })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func passthrough(candidates []Candidate) []Ranked {
	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		out[i] = Ranked{Candidate: c, FinalScore: c.InitialScore}
	}
	return out
}
