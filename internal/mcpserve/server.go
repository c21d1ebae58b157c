// Package mcpserve exposes the Search Interface (spec §4.3) over the Model
// Context Protocol so LLM coding assistants can query an indexed workspace
// directly. Grounded on the teacher's internal/mcp/server.go lifecycle
// (mark3labs/mcp-go server, composable AddXTool registration, stdio
// transport with signal-driven graceful shutdown), generalized from the
// teacher's five chunk/graph/pattern tools down to the two this module's
// domain needs: search and status.
package mcpserve

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
	"github.com/cortexlabs/codeindex/internal/search"
)

// Server wraps an MCP server bound to one workspace's index manager and
// search engine.
type Server struct {
	mcp      *server.MCPServer
	mgr      *indexmgr.Manager
	embedder embed.Provider
}

// New builds an MCP server exposing search_code and index_status, backed by
// an already-Initialize'd Manager. embedder may be nil, in which case
// search_code falls back to lexical-only search.
func New(mgr *indexmgr.Manager, engine *search.Engine, embedder embed.Provider) *Server {
	mcpServer := server.NewMCPServer(
		"codeindex-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	AddSearchTool(mcpServer, engine, embedder, mgr)
	AddStatusTool(mcpServer, mgr)

	return &Server{mcp: mcpServer, mgr: mgr, embedder: embedder}
}

// Serve starts the MCP server on stdio and blocks until a shutdown signal
// arrives or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("mcp server: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("received shutdown signal, stopping...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the embedder and index manager resources.
func (s *Server) Close() error {
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	if s.mgr != nil {
		return s.mgr.Close()
	}
	return nil
}
