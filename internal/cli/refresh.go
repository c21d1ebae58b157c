package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
)

var refreshQuiet bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Incrementally reindex files changed since the last index",
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolVarP(&refreshQuiet, "quiet", "q", false, "disable progress output")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	progress := newCLIProgress(refreshQuiet)
	mgrCfg := cfg.ToIndexManagerConfig(rootDir)
	mgrCfg.OnProgress = progress.onProgress

	mgr := indexmgr.New(mgrCfg)
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer mgr.Close()

	if err := mgr.Refresh(ctx); err != nil {
		progress.done()
		return fmt.Errorf("refresh: %w", err)
	}
	progress.done()

	status := mgr.Status()
	if !refreshQuiet {
		fmt.Printf("refresh complete: %d files on branch %q\n", status.FileCount, status.Branch)
	}
	return nil
}
