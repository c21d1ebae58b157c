// Package graphidx builds an in-memory call/import graph from edges and
// scores it with iterative PageRank, writing results into repo_map.
// Generalized from the teacher's internal/graph/searcher.go use of
// dominikbraun/graph for graph construction and traversal.
package graphidx

import (
	"fmt"

	dgraph "github.com/dominikbraun/graph"

	"github.com/cortexlabs/codeindex/internal/storage"
)

// Graph wraps a dominikbraun/graph directed graph of symbol IDs, built from
// one branch's edges, plus a precomputed out-adjacency list so PageRank's
// iteration doesn't repeatedly re-derive edges from the graph library.
type Graph struct {
	g         dgraph.Graph[string, string]
	nodes     []string
	nodeSet   map[string]bool
	outEdges  map[string][]string
}

// Build constructs a directed graph from every edge in branch, adding an
// implicit vertex for any endpoint not already present.
func Build(edges []storage.Edge) *Graph {
	g := dgraph.New(dgraph.StringHash, dgraph.Directed())
	nodeSet := make(map[string]bool)
	outEdges := make(map[string][]string)
	var nodes []string

	ensure := func(id string) {
		if nodeSet[id] {
			return
		}
		nodeSet[id] = true
		nodes = append(nodes, id)
		_ = g.AddVertex(id)
	}

	for _, e := range edges {
		ensure(e.SourceSymbolID)
		ensure(e.TargetSymbolID)
		if err := g.AddEdge(e.SourceSymbolID, e.TargetSymbolID); err == nil {
			outEdges[e.SourceSymbolID] = append(outEdges[e.SourceSymbolID], e.TargetSymbolID)
		}
	}

	return &Graph{g: g, nodes: nodes, nodeSet: nodeSet, outEdges: outEdges}
}

// Nodes returns every vertex ID in the graph, in insertion order.
func (gr *Graph) Nodes() []string {
	return gr.nodes
}

// Successors returns the out-edges of id.
func (gr *Graph) Successors(id string) []string {
	return gr.outEdges[id]
}

// BuildAndRank runs Build then PageRank, writing the result into store's
// repo_map for branch. A zero field in cfg takes DefaultConfig's value.
func BuildAndRank(store *storage.Store, branch string, cfg Config) error {
	edges, err := store.Edges.AllForBranch(branch)
	if err != nil {
		return fmt.Errorf("graphidx: load edges for %s: %w", branch, err)
	}

	g := Build(edges)
	ranks := PageRank(g, cfg)

	rows := make([]storage.RepoMapRow, 0, len(ranks))
	for symbolID, rank := range ranks {
		rows = append(rows, storage.RepoMapRow{SymbolID: symbolID, Branch: branch, Rank: rank})
	}
	return store.RepoMap.ReplaceBranch(branch, rows)
}
