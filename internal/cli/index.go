package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
)

var (
	indexQuiet bool
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the workspace for hybrid code search",
	Long: `index walks the workspace, extracts symbols/chunks/edges for every
source file, generates embeddings, and persists everything so that search
can be served immediately afterward.

Examples:
  codeindex index
  codeindex index --quiet
  codeindex index --watch`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep running and incrementally reindex on file changes")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\ninterrupted, cancelling...")
		cancel()
	}()

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	progress := newCLIProgress(indexQuiet)
	mgrCfg := cfg.ToIndexManagerConfig(rootDir)
	mgrCfg.OnProgress = progress.onProgress

	mgr := indexmgr.New(mgrCfg)
	if !indexQuiet {
		fmt.Println("initializing index manager...")
	}
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer mgr.Close()

	if !indexQuiet {
		fmt.Println("indexing workspace...")
	}
	if err := mgr.IndexAll(ctx); err != nil {
		progress.done()
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("index_all: %w", err)
	}
	progress.done()

	status := mgr.Status()
	if !indexQuiet {
		fmt.Printf("\nindex complete: %d files on branch %q\n", status.FileCount, status.Branch)
	}

	if indexWatch {
		return watchWorkspace(ctx, mgr, rootDir, cfg, indexQuiet)
	}
	return nil
}
