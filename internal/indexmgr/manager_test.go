package indexmgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/extract"
	"github.com/cortexlabs/codeindex/internal/storage"
)

func newTestManager(t *testing.T, root string) *Manager {
	t.Helper()
	m := New(Config{
		WorkspaceRoot: root,
		Embedder:      embed.Config{Provider: "mock"},
	})
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

const goSample = `package sample

// Greet returns a greeting for name.
func Greet(name string) string {
	return "hello " + name
}
`

const goCaller = `package sample

func Announce() string {
	return Greet("world")
}
`

func TestIndexAllIndexesFilesAndPersistsSymbols(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)
	writeFile(t, root, "announce.go", goCaller)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	status := m.Status()
	assert.Equal(t, 2, status.FileCount)

	recs, err := m.Store.Files.AllForBranch(m.currentBranch())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "indexed", string(r.Status))
	}
}

func TestIndexAllEveryChunkAndSymbolHasAVector(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	branch := m.currentBranch()
	symbols, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)
	require.NotEmpty(t, symbols)
	for _, s := range symbols {
		_, ok, err := m.Store.Vectors.Get(s.ID)
		require.NoError(t, err)
		assert.True(t, ok, "symbol %s missing vector", s.ID)
	}

	chunks, err := m.Store.Chunks.ByFile("greet.go", branch)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		_, ok, err := m.Store.Vectors.Get(c.ID)
		require.NoError(t, err)
		assert.True(t, ok, "chunk %s missing vector", c.ID)
	}
}

func TestRefreshIsIdempotentWhenNothingChanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	branch := m.currentBranch()
	before, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)

	require.NoError(t, m.Refresh(context.Background()))

	after, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
	if len(before) > 0 {
		assert.Equal(t, before[0].ID, after[0].ID)
	}
}

func TestRefreshReusesEmbeddingOnUnchangedContentAfterEdit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)
	writeFile(t, root, "other.go", "package sample\n\nvar Unrelated = 1\n")

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	branch := m.currentBranch()
	symbolsBefore, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)
	require.NotEmpty(t, symbolsBefore)
	vecBefore, ok, err := m.Store.Vectors.Get(symbolsBefore[0].ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Touch a different file so Refresh has something to do, but leave
	// greet.go's content (and therefore content_hash) untouched.
	writeFile(t, root, "other.go", "package sample\n\nvar Unrelated = 2\n")
	require.NoError(t, m.Refresh(context.Background()))

	symbolsAfter, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)
	require.NotEmpty(t, symbolsAfter)
	vecAfter, ok, err := m.Store.Vectors.Get(symbolsAfter[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vecBefore, vecAfter)
}

func TestRefreshRemovesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	require.NoError(t, os.Remove(filepath.Join(root, "greet.go")))
	require.NoError(t, m.Refresh(context.Background()))

	recs, err := m.Store.Files.AllForBranch(m.currentBranch())
	require.NoError(t, err)
	assert.Empty(t, recs)

	symbols, err := m.Store.Symbols.ByFile("greet.go", m.currentBranch())
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestRebuildClearsBranchBeforeReindexing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	require.NoError(t, m.Rebuild(context.Background()))

	recs, err := m.Store.Files.AllForBranch(m.currentBranch())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestIndexFileProcessesOnlyThatPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)
	writeFile(t, root, "announce.go", goCaller)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexFile(context.Background(), "greet.go"))

	recs, err := m.Store.Files.AllForBranch(m.currentBranch())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, "greet.go", recs[0].FilePath)
}

func TestResolveAndPersistEdgesUsesFullyPopulatedSymbolMap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	symbolMap := newSharedSymbolMap()
	symbolMap.add([]storage.Symbol{
		{ID: "sym-a", QualifiedName: "pkg.A"},
		{ID: "sym-b", QualifiedName: "pkg.B"},
	})

	edges := []pendingEdge{
		{Branch: m.currentBranch(), Raw: extract.RawEdge{SourceQualifiedName: "pkg.A", TargetQualifiedName: "pkg.B", Type: "calls"}},
		{Branch: m.currentBranch(), Raw: extract.RawEdge{SourceQualifiedName: "pkg.A", TargetQualifiedName: "pkg.Unresolvable", Type: "calls"}},
	}
	require.NoError(t, m.resolveAndPersistEdges(edges, symbolMap))

	persisted, err := m.Store.Edges.AllForBranch(m.currentBranch())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "sym-a", persisted[0].SourceSymbolID)
	assert.Equal(t, "sym-b", persisted[0].TargetSymbolID)
	assert.Equal(t, storage.EdgeCalls, persisted[0].Type)
}

func TestThirdPartyFileIsMarkedExternal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "third_party/pkg/lib.go", "package lib\n\nfunc helper() {}\n")

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	symbols, err := m.Store.Symbols.ByFile("third_party/pkg/lib.go", m.currentBranch())
	require.NoError(t, err)
	require.NotEmpty(t, symbols)
	for _, s := range symbols {
		assert.True(t, s.IsExternal)
	}
}

func TestStatusReflectsLifecycleAfterFullIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	status := m.Status()
	assert.Equal(t, "ready", string(status.State))
	assert.False(t, status.LastFullIndex.IsZero())
}

func TestUnparseableFileIsIsolatedAndRunContinues(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.go", goSample)
	writeFile(t, root, "bad.go", "package sample\n\nfunc broken( {\n")

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	recs, err := m.Store.Files.AllForBranch(m.currentBranch())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byPath := map[string]string{}
	for _, r := range recs {
		byPath[r.FilePath] = string(r.Status)
	}
	assert.Equal(t, "indexed", byPath["good.go"])
	assert.Equal(t, "error", byPath["bad.go"])
}

func TestIndexAllRefreshesRepoMapWithoutFailing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	recs, err := m.Store.Symbols.ByFile("greet.go", m.currentBranch())
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	// repo_map has no edges to rank in this single-function fixture, but the
	// best-effort refresh must still have run without aborting the index.
	rank, err := m.Store.RepoMap.Rank(recs[0].ID, m.currentBranch())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rank, 0.0)
}
