package embed

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	paths := storage.DefaultPaths(t.TempDir())
	store, err := storage.Open(paths, 8)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckRotationRecordsFirstModelWithoutWiping(t *testing.T) {
	store := openTestStore(t)

	rotated, err := CheckRotation(store, "model-a")
	require.NoError(t, err)
	require.False(t, rotated)

	recorded, ok, err := store.Meta.Get(storage.MetaEmbeddingModelID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "model-a", recorded)
}

func TestCheckRotationWipesVectorsOnModelChange(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Vectors.Put(storage.VectorRow{ContentID: "sym-1", Embedding: []float32{1, 0, 0, 0, 0, 0, 0, 0}}))

	_, err := CheckRotation(store, "model-a")
	require.NoError(t, err)

	rotated, err := CheckRotation(store, "model-b")
	require.NoError(t, err)
	require.True(t, rotated)

	_, ok, err := store.Vectors.Get("sym-1")
	require.NoError(t, err)
	require.False(t, ok, "vector rows must be wiped after a model rotation")

	recorded, ok, err := store.Meta.Get(storage.MetaEmbeddingModelID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "model-b", recorded)
}

func TestCheckRotationNoOpWhenModelUnchanged(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Vectors.Put(storage.VectorRow{ContentID: "sym-1", Embedding: []float32{1, 0, 0, 0, 0, 0, 0, 0}}))

	_, err := CheckRotation(store, "model-a")
	require.NoError(t, err)

	rotated, err := CheckRotation(store, "model-a")
	require.NoError(t, err)
	require.False(t, rotated)

	_, ok, err := store.Vectors.Get("sym-1")
	require.NoError(t, err)
	require.True(t, ok, "vectors must survive when the model id is unchanged")
}
