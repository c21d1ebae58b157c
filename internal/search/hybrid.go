// Package search implements the Multi-Granular Hybrid Search pipeline of
// spec §4.3: lexical (bleve/BM25) + dense vector fusion via Reciprocal Rank
// Fusion, optional query rewriting, optional reranking, and result caching.
// RRF bucket-merge is grounded on the two-list mergeRRF shape found in the
// retrieved pack's pkg/memory retriever, generalized to six buckets.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/cortexlabs/codeindex/internal/contentcache"
	"github.com/cortexlabs/codeindex/internal/rerank"
	"github.com/cortexlabs/codeindex/internal/rewrite"
	"github.com/cortexlabs/codeindex/internal/storage"
)

// FileScore is one row of the files[] materialized view.
type FileScore struct {
	FilePath string
	Score    float64
}

// Result is the full output of one Search call, matching spec step 9's
// three materialized views plus the rewrite/cache metadata tests inspect.
type Result struct {
	Symbols   []storage.Symbol
	Chunks    []storage.Chunk
	Files     []FileScore
	FromCache bool
	Rewrite   *rewrite.Result
}

// Engine ties the storage layer, content cache and rewriter/reranker
// factories together for repeated Search calls against one workspace.
type Engine struct {
	Store *storage.Store
	Cache *contentcache.Cache
}

// New builds an Engine over an already-open Store, optionally with a
// content cache (nil disables caching regardless of EnableCaching).
func New(store *storage.Store, cache *contentcache.Cache) *Engine {
	return &Engine{Store: store, Cache: cache}
}

// Search runs the ten-step hybrid search algorithm of spec §4.3. embedding
// may be nil for a keyword-only search.
func (e *Engine) Search(ctx context.Context, queryText string, embedding []float32, opts Options) (*Result, error) {
	opts = opts.normalized()

	// Step 1: cache probe.
	var cacheKey string
	if e.Cache != nil && opts.EnableCaching && !opts.SkipCache {
		key, err := canonicalCacheKey(queryText, opts)
		if err != nil {
			return nil, err
		}
		cacheKey = key
		if cached, ok := e.Cache.Get(cacheKey); ok {
			result := cached.(Result)
			result.FromCache = true
			return &result, nil
		}
	}

	// Step 2: optional rewrite.
	effectiveQuery := queryText
	filePatterns := append([]string(nil), opts.FilePatterns...)
	var rw *rewrite.Result
	if opts.EnableRewriting {
		r := rewrite.Rewrite(queryText)
		rw = &r
		effectiveQuery = r.Expanded
		filePatterns = mergePatterns(filePatterns, r.FilePatterns)
	}

	// Step 3: path filter plumbing.
	if opts.PathPrefix != "" {
		filePatterns = mergePatterns(filePatterns, []string{opts.PathPrefix + "**"})
	}
	overFetch := opts.Limit * 2
	if len(filePatterns) > 0 {
		overFetch = opts.Limit * 3
	}

	contentTypes := contentTypesFor(opts.Granularity)

	// Step 4: lexical search.
	var ftsMatches []storage.FTSMatch
	if effectiveQuery != "" {
		matches, err := e.Store.FTS.Search(effectiveQuery, storage.SearchOptions{
			Branch:       opts.Branch,
			ContentTypes: contentTypes,
			FilePatterns: filePatterns,
			Limit:        opts.Limit * 2,
		})
		if err != nil {
			return nil, fmt.Errorf("search: fts query: %w", err)
		}
		ftsMatches = matches
	}

	// Step 5: vector search.
	var vectorItems []scoredItem
	if len(embedding) > 0 {
		vMatches, err := e.Store.Vectors.Search(embedding, overFetch)
		if err != nil {
			return nil, fmt.Errorf("search: vector query: %w", err)
		}
		vectorItems, err = e.resolveVectorMatches(vMatches, opts.Branch, contentTypes)
		if err != nil {
			return nil, err
		}
		if len(filePatterns) > 0 {
			vectorItems = filterByPatterns(vectorItems, filePatterns)
		}
	}

	// Step 6: RRF fusion across six buckets (symbol/chunk/file x fts/vector).
	buckets := bucketize(ftsMatches, vectorItems)
	fused := fuse(buckets, opts.Weights.asMap(), opts.RRFK)
	if opts.Limit > 0 && len(fused) > opts.Limit {
		fused = fused[:opts.Limit]
	}

	// Step 7: short-token word-boundary boost.
	terms := tokenize(effectiveQuery)
	fused = applyShortTokenBoost(fused, terms)

	// Step 8: optional reranking, preserving (start_line, end_line) across
	// rerankers that drop those fields.
	if opts.EnableReranking && len(fused) > 0 {
		reranked, err := e.rerank(ctx, opts, queryText, fused)
		if err != nil {
			return nil, err
		}
		fused = reranked
	}

	// Step 9: extraction into materialized views.
	result, err := e.materialize(fused, opts.Branch)
	if err != nil {
		return nil, err
	}
	result.Rewrite = rw

	// Step 10: cache write.
	if e.Cache != nil && opts.EnableCaching && cacheKey != "" {
		files := collectFiles(fused)
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.FilePath
		}
		e.Cache.Set(cacheKey, *result, paths...)
	}

	return result, nil
}

func canonicalCacheKey(query string, opts Options) (string, error) {
	b, err := json.Marshal(cacheKeyPayload(query, opts))
	if err != nil {
		return "", fmt.Errorf("search: build cache key: %w", err)
	}
	return string(b), nil
}

func mergePatterns(a, b []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a)+len(b))
	for _, p := range append(append([]string(nil), a...), b...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
	return fields
}

func (e *Engine) resolveVectorMatches(matches []storage.VectorMatch, branch string, contentTypes []storage.ContentType) ([]scoredItem, error) {
	allowed := func(ct storage.ContentType) bool {
		if len(contentTypes) == 0 {
			return true
		}
		for _, c := range contentTypes {
			if c == ct {
				return true
			}
		}
		return false
	}

	ids := make([]string, 0, len(matches))
	simByID := make(map[string]float64, len(matches))
	for _, m := range matches {
		if m.Similarity < MinSimilarity {
			continue
		}
		ids = append(ids, m.ContentID)
		simByID[m.ContentID] = m.Similarity
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var items []scoredItem

	if allowed(storage.ContentSymbol) {
		symbols, err := e.Store.Symbols.GetByIDs(ids, branch)
		if err != nil {
			return nil, fmt.Errorf("search: resolve symbol vectors: %w", err)
		}
		resolved := map[string]bool{}
		for _, sym := range symbols {
			resolved[sym.ID] = true
			items = append(items, scoredItem{
				ContentID: sym.ID, Granularity: storage.ContentSymbol,
				FilePath: sym.FilePath, Name: sym.Name, Content: sym.Content,
				StartLine: sym.StartLine, EndLine: sym.EndLine, hasLines: true,
				Score: simByID[sym.ID],
			})
		}
		ids = removeResolved(ids, resolved)
	}

	if len(ids) > 0 && (allowed(storage.ContentChunk) || allowed(storage.ContentFile)) {
		chunks, err := e.Store.Chunks.GetByIDs(ids, branch)
		if err != nil {
			return nil, fmt.Errorf("search: resolve chunk vectors: %w", err)
		}
		for _, c := range chunks {
			ct := storage.ContentChunk
			if c.ChunkType == storage.ChunkFile {
				ct = storage.ContentFile
			}
			if !allowed(ct) {
				continue
			}
			items = append(items, scoredItem{
				ContentID: c.ID, Granularity: ct,
				FilePath: c.FilePath, Content: c.Content,
				StartLine: c.StartLine, EndLine: c.EndLine, hasLines: true,
				Score: simByID[c.ID],
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items, nil
}

func removeResolved(ids []string, resolved map[string]bool) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if !resolved[id] {
			out = append(out, id)
		}
	}
	return out
}

func filterByPatterns(items []scoredItem, patterns []string) []scoredItem {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}
	if len(globs) == 0 {
		return items
	}
	out := items[:0:0]
	for _, item := range items {
		for _, g := range globs {
			if g.Match(item.FilePath) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// bucketize splits FTS and vector matches into six granularity×source
// buckets, ranked within each by their native score (spec §4.3 step 6).
func bucketize(ftsMatches []storage.FTSMatch, vectorItems []scoredItem) []rankedBucket {
	ftsByType := map[storage.ContentType][]scoredItem{}
	for _, m := range ftsMatches {
		rank := m.Rank
		if rank < 0 {
			rank = -rank
		}
		ftsByType[m.ContentType] = append(ftsByType[m.ContentType], scoredItem{
			ContentID: m.ContentID, Granularity: m.ContentType,
			FilePath: m.FilePath, Name: m.Name, Content: m.Content,
			Score: rank,
		})
	}
	for ct := range ftsByType {
		items := ftsByType[ct]
		sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
		ftsByType[ct] = items
	}

	vecByType := map[storage.ContentType][]scoredItem{}
	for _, item := range vectorItems {
		vecByType[item.Granularity] = append(vecByType[item.Granularity], item)
	}

	var buckets []rankedBucket
	for _, ct := range []storage.ContentType{storage.ContentSymbol, storage.ContentChunk, storage.ContentFile} {
		if items, ok := ftsByType[ct]; ok {
			buckets = append(buckets, rankedBucket{key: bucketKey{granularity: ct, source: "fts"}, items: items})
		}
		if items, ok := vecByType[ct]; ok {
			buckets = append(buckets, rankedBucket{key: bucketKey{granularity: ct, source: "vector"}, items: items})
		}
	}
	return buckets
}

func (e *Engine) rerank(ctx context.Context, opts Options, originalQuery string, items []scoredItem) ([]scoredItem, error) {
	candidates := make([]rerank.Candidate, len(items))
	for i, it := range items {
		candidates[i] = rerank.Candidate{
			ID: it.ContentID, Content: it.Content, FilePath: it.FilePath,
			InitialScore: it.Score, Granularity: string(it.Granularity),
			StartLine: it.StartLine, EndLine: it.EndLine,
		}
	}
	snapshot := rerank.Snapshot(candidates)

	reranker, err := rerank.New(opts.Reranker, opts.RemoteRerankEndpoint)
	if err != nil {
		return nil, fmt.Errorf("search: build reranker: %w", err)
	}
	ranked, err := reranker.Rerank(ctx, originalQuery, candidates, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrRemoteRerankerFailure, err)
	}
	rerank.RestoreLines(ranked, snapshot)

	byID := make(map[string]scoredItem, len(items))
	for _, it := range items {
		byID[it.ContentID] = it
	}

	out := make([]scoredItem, len(ranked))
	for i, r := range ranked {
		orig := byID[r.ID]
		orig.Score = r.FinalScore
		orig.StartLine = r.StartLine
		orig.EndLine = r.EndLine
		out[i] = orig
	}
	return out, nil
}

func (e *Engine) materialize(items []scoredItem, branch string) (*Result, error) {
	var symbolIDs, chunkIDs []string
	for _, it := range items {
		switch it.Granularity {
		case storage.ContentSymbol:
			symbolIDs = append(symbolIDs, it.ContentID)
		case storage.ContentChunk, storage.ContentFile:
			chunkIDs = append(chunkIDs, it.ContentID)
		}
	}

	symbolsByID := map[string]storage.Symbol{}
	if len(symbolIDs) > 0 {
		rows, err := e.Store.Symbols.GetByIDs(symbolIDs, branch)
		if err != nil {
			return nil, fmt.Errorf("search: materialize symbols: %w", err)
		}
		for _, s := range rows {
			symbolsByID[s.ID] = s
		}
	}
	chunksByID := map[string]storage.Chunk{}
	if len(chunkIDs) > 0 {
		rows, err := e.Store.Chunks.GetByIDs(chunkIDs, branch)
		if err != nil {
			return nil, fmt.Errorf("search: materialize chunks: %w", err)
		}
		for _, c := range rows {
			chunksByID[c.ID] = c
		}
	}

	result := &Result{}
	fileScores := map[string]float64{}
	var fileOrder []string

	for _, it := range items {
		switch it.Granularity {
		case storage.ContentSymbol:
			if s, ok := symbolsByID[it.ContentID]; ok {
				result.Symbols = append(result.Symbols, s)
			}
		case storage.ContentChunk, storage.ContentFile:
			if c, ok := chunksByID[it.ContentID]; ok {
				result.Chunks = append(result.Chunks, c)
			}
		}
		if _, ok := fileScores[it.FilePath]; !ok {
			fileOrder = append(fileOrder, it.FilePath)
		}
		fileScores[it.FilePath] += it.Score
	}

	for _, fp := range fileOrder {
		result.Files = append(result.Files, FileScore{FilePath: fp, Score: fileScores[fp]})
	}
	sort.SliceStable(result.Files, func(i, j int) bool { return result.Files[i].Score > result.Files[j].Score })

	return result, nil
}

func collectFiles(items []scoredItem) []FileScore {
	seen := map[string]bool{}
	var out []FileScore
	for _, it := range items {
		if it.FilePath == "" || seen[it.FilePath] {
			continue
		}
		seen[it.FilePath] = true
		out = append(out, FileScore{FilePath: it.FilePath})
	}
	return out
}
