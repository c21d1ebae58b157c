package mcpserve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
	"github.com/cortexlabs/codeindex/internal/search"
)

// searchResultJSON is the wire shape returned by search_code, flattening
// search.Result's three materialized views into one ranked-friendly
// response.
type searchResultJSON struct {
	Symbols []symbolJSON `json:"symbols,omitempty"`
	Chunks  []chunkJSON  `json:"chunks,omitempty"`
	Files   []fileJSON   `json:"files,omitempty"`
}

type symbolJSON struct {
	File          string `json:"file"`
	Line          int    `json:"line"`
	QualifiedName string `json:"qualified_name"`
	Type          string `json:"type"`
	Signature     string `json:"signature,omitempty"`
}

type chunkJSON struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

type fileJSON struct {
	File  string  `json:"file"`
	Score float64 `json:"score"`
}

// AddSearchTool registers search_code, the hybrid-search entry point (spec
// §4.3). It is composable with other tool registrations (mirrors the
// teacher's AddCortexSearchTool).
func AddSearchTool(s *server.MCPServer, engine *search.Engine, embedder embed.Provider, mgr *indexmgr.Manager) {
	tool := mcp.NewTool(
		"search_code",
		mcp.WithDescription("Search the indexed codebase for relevant symbols, chunks, and files using hybrid lexical + semantic search."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language or keyword query (e.g. 'JWT token validation', 'retry with backoff')")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results per granularity (default 15)")),
		mcp.WithString("granularity",
			mcp.Description("One of auto, symbol, chunk, file (default auto)")),
		mcp.WithString("path_prefix",
			mcp.Description("Restrict results to files under this workspace-relative path prefix")),
	)
	s.AddTool(tool, createSearchHandler(engine, embedder, mgr))
}

func createSearchHandler(engine *search.Engine, embedder embed.Provider, mgr *indexmgr.Manager) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		query, ok := argsMap["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		opts := search.Options{
			Branch:      mgr.Status().Branch,
			Granularity: search.GranularityAuto,
			Limit:       15,
			Weights:     search.DefaultWeights(),
			RRFK:        search.DefaultRRFK,
		}
		if limit, ok := argsMap["limit"].(float64); ok && limit > 0 {
			opts.Limit = int(limit)
		}
		if g, ok := argsMap["granularity"].(string); ok && g != "" {
			opts.Granularity = search.Granularity(g)
		}
		if p, ok := argsMap["path_prefix"].(string); ok {
			opts.PathPrefix = p
		}

		var queryVector []float32
		if embedder != nil {
			vecs, err := embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
			if err == nil && len(vecs) > 0 {
				queryVector = vecs[0]
			}
		}

		result, err := engine.Search(ctx, query, queryVector, opts)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		response := searchResultJSON{}
		for _, sym := range result.Symbols {
			response.Symbols = append(response.Symbols, symbolJSON{
				File: sym.FilePath, Line: sym.StartLine, QualifiedName: sym.QualifiedName,
				Type: string(sym.Type), Signature: sym.Signature,
			})
		}
		for _, c := range result.Chunks {
			response.Chunks = append(response.Chunks, chunkJSON{
				File: c.FilePath, StartLine: c.StartLine, EndLine: c.EndLine, Content: c.Content,
			})
		}
		for _, f := range result.Files {
			response.Files = append(response.Files, fileJSON{File: f.FilePath, Score: f.Score})
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// statusJSON is the wire shape returned by index_status.
type statusJSON struct {
	State         string `json:"state"`
	Branch        string `json:"branch"`
	FileCount     int    `json:"file_count"`
	EmbeddingModel string `json:"embedding_model"`
	LastFullIndex string `json:"last_full_index,omitempty"`
}

// AddStatusTool registers index_status, reporting the Manager's lifecycle
// state (spec §4.1 "status").
func AddStatusTool(s *server.MCPServer, mgr *indexmgr.Manager) {
	tool := mcp.NewTool(
		"index_status",
		mcp.WithDescription("Report the current indexing state for this workspace: lifecycle state, branch, file count, and embedding model."),
	)
	s.AddTool(tool, createStatusHandler(mgr))
}

func createStatusHandler(mgr *indexmgr.Manager) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st := mgr.Status()
		response := statusJSON{
			State:          string(st.State),
			Branch:         st.Branch,
			FileCount:      st.FileCount,
			EmbeddingModel: st.EmbeddingModel,
		}
		if !st.LastFullIndex.IsZero() {
			response.LastFullIndex = st.LastFullIndex.Format("2006-01-02T15:04:05Z07:00")
		}
		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
