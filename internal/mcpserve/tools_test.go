package mcpserve

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/contentcache"
	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
	"github.com/cortexlabs/codeindex/internal/search"
)

const sampleGo = `package sample

// Greet returns a greeting for name.
func Greet(name string) string {
	return "hello " + name
}
`

func newTestFixture(t *testing.T) (*indexmgr.Manager, *search.Engine, embed.Provider) {
	t.Helper()
	root := t.TempDir()
	abs := filepath.Join(root, "greet.go")
	require.NoError(t, os.WriteFile(abs, []byte(sampleGo), 0o644))

	mgr := indexmgr.New(indexmgr.Config{
		WorkspaceRoot: root,
		Embedder:      embed.Config{Provider: "mock"},
	})
	require.NoError(t, mgr.Initialize(context.Background()))
	require.NoError(t, mgr.IndexAll(context.Background()))
	t.Cleanup(func() { _ = mgr.Close() })

	cache, err := contentcache.New(contentcache.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	engine := search.New(mgr.Store, cache)
	return mgr, engine, embed.NewMockProvider()
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestSearchHandlerReturnsMatchesForIndexedSymbol(t *testing.T) {
	mgr, engine, embedder := newTestFixture(t)
	handler := createSearchHandler(engine, embedder, mgr)

	result := callTool(t, handler, map[string]interface{}{"query": "Greet"})
	assert.False(t, result.IsError)

	var resp searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.NotEmpty(t, resp.Symbols)
	found := false
	for _, s := range resp.Symbols {
		if s.QualifiedName == "sample.Greet" || s.File == "greet.go" {
			found = true
		}
	}
	assert.True(t, found, "expected the Greet symbol among results")
}

func TestSearchHandlerRejectsMissingQuery(t *testing.T) {
	_, engine, embedder := newTestFixture(t)
	mgr := indexmgr.New(indexmgr.Config{})
	handler := createSearchHandler(engine, embedder, mgr)

	result := callTool(t, handler, map[string]interface{}{})
	assert.True(t, result.IsError)
}

func TestSearchHandlerFallsBackToLexicalWithoutEmbedder(t *testing.T) {
	mgr, engine, _ := newTestFixture(t)
	handler := createSearchHandler(engine, nil, mgr)

	result := callTool(t, handler, map[string]interface{}{"query": "Greet"})
	assert.False(t, result.IsError)

	var resp searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.NotEmpty(t, resp.Symbols)
}

func TestSearchHandlerRespectsLimitArgument(t *testing.T) {
	mgr, engine, embedder := newTestFixture(t)
	handler := createSearchHandler(engine, embedder, mgr)

	result := callTool(t, handler, map[string]interface{}{"query": "Greet", "limit": float64(1)})
	assert.False(t, result.IsError)

	var resp searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.LessOrEqual(t, len(resp.Symbols), 1)
}

func TestStatusHandlerReportsFileCountAndState(t *testing.T) {
	mgr, _, _ := newTestFixture(t)
	handler := createStatusHandler(mgr)

	result := callTool(t, handler, map[string]interface{}{})
	assert.False(t, result.IsError)

	var resp statusJSON
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, 1, resp.FileCount)
	assert.NotEmpty(t, resp.State)
}
