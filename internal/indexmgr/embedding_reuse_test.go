package indexmgr

// Test Plan:
// - a file renamed between two Refresh calls, with byte-identical content,
//   reuses its prior embedding instead of triggering a new Embedder call
//   (spec §8 Scenario 2). The narrower same-path case (an edit to an
//   unrelated file leaves greet.go's own embedding untouched) is covered by
//   TestRefreshReusesEmbeddingOnUnchangedContentAfterEdit in manager_test.go.

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/embed"
)

func TestRefreshReusesEmbeddingAcrossARename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "greet.go", goSample)

	m := newTestManager(t, root)
	require.NoError(t, m.IndexAll(context.Background()))

	branch := m.currentBranch()
	before, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)
	require.NotEmpty(t, before)
	vecBefore, ok, err := m.Store.Vectors.Get(before[0].ID)
	require.NoError(t, err)
	require.True(t, ok)

	mock, ok := m.Embedder.(*embed.MockProvider)
	require.True(t, ok)
	callsBefore := mock.EmbedCallCount()

	// Rename greet.go -> hello.go with byte-identical content.
	require.NoError(t, os.Remove(filepath.Join(root, "greet.go")))
	writeFile(t, root, "hello.go", goSample)
	require.NoError(t, m.Refresh(context.Background()))

	assert.Equal(t, callsBefore, mock.EmbedCallCount(), "rename with unchanged content must not call the embedder")

	renamedSymbols, err := m.Store.Symbols.ByFile("hello.go", branch)
	require.NoError(t, err)
	require.NotEmpty(t, renamedSymbols)
	vecAfter, ok, err := m.Store.Vectors.Get(renamedSymbols[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vecBefore, vecAfter)

	oldSymbols, err := m.Store.Symbols.ByFile("greet.go", branch)
	require.NoError(t, err)
	assert.Empty(t, oldSymbols)
}
