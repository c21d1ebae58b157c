package graphidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/storage"
)

func edges(pairs ...[2]string) []storage.Edge {
	out := make([]storage.Edge, len(pairs))
	for i, p := range pairs {
		out[i] = storage.Edge{SourceSymbolID: p[0], TargetSymbolID: p[1], Type: storage.EdgeCalls, Branch: "main"}
	}
	return out
}

func TestBuildCollectsAllEndpointsAsNodes(t *testing.T) {
	g := Build(edges([2]string{"a", "b"}, [2]string{"b", "c"}))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, g.Nodes())
}

func TestPageRankSumsToApproximatelyOne(t *testing.T) {
	g := Build(edges([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}))
	ranks := PageRank(g, DefaultConfig())

	var total float64
	for _, r := range ranks {
		total += r
	}
	assert.InDelta(t, 1.0, total, 0.01)
}

func TestPageRankFavorsMoreReferencedNode(t *testing.T) {
	// b and c both point to a; a points nowhere.
	g := Build(edges([2]string{"b", "a"}, [2]string{"c", "a"}))
	ranks := PageRank(g, DefaultConfig())
	assert.Greater(t, ranks["a"], ranks["b"])
	assert.Greater(t, ranks["a"], ranks["c"])
}

func TestPageRankHandlesDanglingNodes(t *testing.T) {
	g := Build(edges([2]string{"a", "b"})) // b has no out-edges
	ranks := PageRank(g, Config{Damping: 0.85, Tolerance: 1e-9, MaxIterations: 50})
	require.Contains(t, ranks, "b")
	assert.Greater(t, ranks["b"], 0.0)
}

func TestBuildAndRankWritesRepoMap(t *testing.T) {
	paths := storage.DefaultPaths(t.TempDir())
	store, err := storage.Open(paths, 4)
	require.NoError(t, err)
	defer store.Close()

	tx, err := store.DB.Begin()
	require.NoError(t, err)
	require.NoError(t, store.Edges.PutAll(tx, edges([2]string{"sym-a", "sym-b"}, [2]string{"sym-b", "sym-a"})))
	require.NoError(t, tx.Commit())

	require.NoError(t, BuildAndRank(store, "main", DefaultConfig()))

	rank, err := store.RepoMap.Rank("sym-a", "main")
	require.NoError(t, err)
	assert.Greater(t, rank, 0.0)
}
