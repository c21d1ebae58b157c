package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/contentcache"
	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
	"github.com/cortexlabs/codeindex/internal/mcpserve"
	"github.com/cortexlabs/codeindex/internal/search"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start the MCP server for semantic code search",
	Long: `serve-mcp starts a Model Context Protocol server over stdio, exposing
search_code and index_status tools so LLM coding assistants can query an
already-indexed workspace.

Example:
  codeindex serve-mcp`,
	RunE: runServeMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	fmt.Fprintln(os.Stderr, "codeindex MCP server")

	mgr := indexmgr.New(cfg.ToIndexManagerConfig(rootDir))
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize index manager: %w", err)
	}

	fmt.Fprintf(os.Stderr, "branch: %s, files: %d\n", mgr.Status().Branch, mgr.Status().FileCount)

	cache, err := contentcache.New(contentcache.DefaultConfig())
	if err != nil {
		mgr.Close()
		return fmt.Errorf("build content cache: %w", err)
	}
	engine := search.New(mgr.Store, cache)

	var embedder embed.Provider
	provider, err := embed.NewProvider(embed.Config{
		Provider:   cfg.Embedding.Provider,
		Endpoint:   cfg.Embedding.Endpoint,
		Dimensions: cfg.Embedding.Dimensions,
		Model:      cfg.Embedding.Model,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: embedding provider unavailable: %v\n", err)
		fmt.Fprintln(os.Stderr, "  search_code will fall back to lexical-only search")
	} else {
		embedder = provider
	}

	srv := mcpserve.New(mgr, engine, embedder)
	defer srv.Close()

	return srv.Serve(ctx)
}
