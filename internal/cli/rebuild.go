package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop everything indexed for the current branch and reindex from scratch",
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	progress := newCLIProgress(false)
	mgrCfg := cfg.ToIndexManagerConfig(rootDir)
	mgrCfg.OnProgress = progress.onProgress

	mgr := indexmgr.New(mgrCfg)
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer mgr.Close()

	fmt.Println("rebuilding index from scratch...")
	if err := mgr.Rebuild(ctx); err != nil {
		progress.done()
		return fmt.Errorf("rebuild: %w", err)
	}
	progress.done()

	status := mgr.Status()
	fmt.Printf("rebuild complete: %d files on branch %q\n", status.FileCount, status.Branch)
	return nil
}
