package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/contentcache"
	"github.com/cortexlabs/codeindex/internal/storage"
)

const dims = 8

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	paths := storage.DefaultPaths(t.TempDir())
	store, err := storage.Open(paths, dims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seed writes one symbol, one block chunk and one file chunk, all indexed
// into FTS and given distinct vectors so FTS and vector buckets disagree on
// ranking (forcing RRF fusion to matter).
func seed(t *testing.T, store *storage.Store) {
	t.Helper()
	const branch = "main"

	sym := storage.Symbol{
		ID: "sym-parse", Branch: branch, Name: "ParseTokens", QualifiedName: "lexer.ParseTokens",
		Type: storage.SymbolFunction, Language: "go", FilePath: "internal/lexer/lexer.go",
		StartLine: 10, EndLine: 40, Content: "func ParseTokens(src string) []Token { /* tx io boundary */ }",
		ContentHash: "h1", UpdatedAt: time.Now(),
	}
	blockChunk := storage.Chunk{
		ID: "chunk-block-1", Branch: branch, FilePath: "internal/lexer/lexer.go",
		StartLine: 1, EndLine: 9, Content: "package lexer\n\n// token stream helpers",
		ChunkType: storage.ChunkBlock, ContentHash: "h2", UpdatedAt: time.Now(),
	}
	fileChunk := storage.Chunk{
		ID: "chunk-file-1", Branch: branch, FilePath: "internal/render/render.go",
		StartLine: 1, EndLine: 50, Content: "package render\n\nfunc RenderPixels() {}",
		ChunkType: storage.ChunkFile, ContentHash: "h3", UpdatedAt: time.Now(),
	}

	tx, err := store.DB.Begin()
	require.NoError(t, err)
	require.NoError(t, store.Symbols.PutAll(tx, []storage.Symbol{sym}))
	require.NoError(t, store.Chunks.PutAll(tx, []storage.Chunk{blockChunk, fileChunk}))
	require.NoError(t, tx.Commit())

	require.NoError(t, store.FTS.PutBatch([]storage.FTSRow{
		{ContentID: sym.ID, ContentType: storage.ContentSymbol, FilePath: sym.FilePath, Name: sym.Name, Content: sym.Content, Branch: branch},
		{ContentID: blockChunk.ID, ContentType: storage.ContentChunk, FilePath: blockChunk.FilePath, Name: "", Content: blockChunk.Content, Branch: branch},
		{ContentID: fileChunk.ID, ContentType: storage.ContentFile, FilePath: fileChunk.FilePath, Name: "", Content: fileChunk.Content, Branch: branch},
	}))

	require.NoError(t, store.Vectors.PutAll([]storage.VectorRow{
		{ContentID: sym.ID, Embedding: unitVector(0)},
		{ContentID: blockChunk.ID, Embedding: unitVector(1)},
		{ContentID: fileChunk.ID, Embedding: unitVector(7)},
	}))
}

func unitVector(axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

func TestKeywordOnlySearchReturnsMaterializedViews(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	engine := New(store, nil)
	result, err := engine.Search(context.Background(), "token stream", nil, Options{Branch: "main", Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Symbols)
	assert.False(t, result.FromCache)
}

func TestVectorOnlySearchRespectsMinSimilarity(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	engine := New(store, nil)
	// Query vector far from every seeded unit vector in every dimension:
	// similarity should fall under MIN_SIMILARITY and yield no vector hits.
	query := make([]float32, dims)
	for i := range query {
		query[i] = -1
	}
	result, err := engine.Search(context.Background(), "", query, Options{Branch: "main", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Symbols)
	assert.Empty(t, result.Chunks)
}

func TestHybridSearchFusesLexicalAndVectorResults(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	engine := New(store, nil)
	result, err := engine.Search(context.Background(), "token stream parser", unitVector(0), Options{Branch: "main", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Symbols)
	var names []string
	for _, s := range result.Symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "ParseTokens")
}

func TestShortTokenBoostPromotesExactIdentifierMatch(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	engine := New(store, nil)
	result, err := engine.Search(context.Background(), "tx io", nil, Options{Branch: "main", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Symbols)
	assert.Equal(t, "ParseTokens", result.Symbols[0].Name)
}

func TestPathPrefixFilterNarrowsResults(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	engine := New(store, nil)
	result, err := engine.Search(context.Background(), "package", nil, Options{
		Branch: "main", Limit: 10, PathPrefix: "internal/render/",
	})
	require.NoError(t, err)
	for _, c := range result.Chunks {
		assert.Contains(t, c.FilePath, "internal/render/")
	}
}

func TestCacheHitReturnsFromCacheTrue(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	cache, err := contentcache.New(contentcache.DefaultConfig())
	require.NoError(t, err)
	defer cache.Close()

	engine := New(store, cache)
	opts := Options{Branch: "main", Limit: 10, EnableCaching: true}

	first, err := engine.Search(context.Background(), "token stream", nil, opts)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := engine.Search(context.Background(), "token stream", nil, opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
}

func TestSkipCacheBypassesStoredResult(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	cache, err := contentcache.New(contentcache.DefaultConfig())
	require.NoError(t, err)
	defer cache.Close()

	engine := New(store, cache)
	opts := Options{Branch: "main", Limit: 10, EnableCaching: true}

	_, err = engine.Search(context.Background(), "token stream", nil, opts)
	require.NoError(t, err)

	opts.SkipCache = true
	second, err := engine.Search(context.Background(), "token stream", nil, opts)
	require.NoError(t, err)
	assert.False(t, second.FromCache)
}

func TestRewritingAttachesRewriteResult(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	engine := New(store, nil)
	result, err := engine.Search(context.Background(), "parse", nil, Options{
		Branch: "main", Limit: 10, EnableRewriting: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Rewrite)
	assert.Equal(t, "parse", result.Rewrite.Original)
}
