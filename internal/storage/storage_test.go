package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	paths := DefaultPaths(t.TempDir())
	store, err := Open(paths, 8)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSchemaVersionBootstrapped(t *testing.T) {
	store := openTestStore(t)
	version, err := GetSchemaVersion(store.DB)
	require.NoError(t, err)
	require.Equal(t, schemaVersion, version)
}

func TestVectorRowExistsOnlyAfterPut(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Vectors.Get("sym-1")
	require.NoError(t, err)
	require.False(t, ok, "no vector row should exist before Put")

	require.NoError(t, store.Vectors.Put(VectorRow{ContentID: "sym-1", Embedding: []float32{1, 0, 0, 0, 0, 0, 0, 0}}))
	vec, ok, err := store.Vectors.Get("sym-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, vec, 8)
}

func TestDeleteFileCascadeRemovesSymbolsChunksVectors(t *testing.T) {
	store := openTestStore(t)
	const branch = "main"
	const file = "pkg/foo.go"

	sym := Symbol{
		ID: "sym-foo", Branch: branch, Name: "Foo", QualifiedName: "pkg.Foo",
		Type: SymbolFunction, Language: "go", FilePath: file, StartLine: 1, EndLine: 3,
		Content: "func Foo() {}", ContentHash: "h1", UpdatedAt: time.Now(),
	}
	chunk := Chunk{
		ID: "chunk-foo-file", Branch: branch, FilePath: file, StartLine: 1, EndLine: 3,
		Content: "func Foo() {}", ChunkType: ChunkFile, ContentHash: "h1", UpdatedAt: time.Now(),
	}

	tx, err := store.DB.Begin()
	require.NoError(t, err)
	require.NoError(t, store.Symbols.PutAll(tx, []Symbol{sym}))
	require.NoError(t, store.Chunks.PutAll(tx, []Chunk{chunk}))
	require.NoError(t, tx.Commit())
	require.NoError(t, store.Vectors.Put(VectorRow{ContentID: sym.ID, Embedding: []float32{1, 0, 0, 0, 0, 0, 0, 0}}))
	require.NoError(t, store.FTS.Put(FTSRow{ContentID: sym.ID, ContentType: ContentSymbol, FilePath: file, Name: "Foo", Content: sym.Content, Branch: branch}))

	require.NoError(t, store.DeleteFileCascade(file, branch))

	symbols, err := store.Symbols.ByFile(file, branch)
	require.NoError(t, err)
	require.Empty(t, symbols)

	chunks, err := store.Chunks.ByFile(file, branch)
	require.NoError(t, err)
	require.Empty(t, chunks)

	_, ok, err := store.Vectors.Get(sym.ID)
	require.NoError(t, err)
	require.False(t, ok, "vector row must be removed on cascade delete")
}

func TestDefaultPathsAreFixed(t *testing.T) {
	paths := DefaultPaths("/repo")
	require.Equal(t, filepath.Join("/repo", ".opencode", "code-intel", "index.db"), paths.DBPath)
	require.Equal(t, filepath.Join("/repo", ".opencode", "code-intel", "cache.json"), paths.CachePath)
}
