package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current index state for this workspace",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	mgr := indexmgr.New(cfg.ToIndexManagerConfig(rootDir))
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer mgr.Close()

	status := mgr.Status()
	fmt.Printf("state:       %s\n", status.State)
	fmt.Printf("branch:      %s\n", status.Branch)
	fmt.Printf("files:       %d\n", status.FileCount)
	fmt.Printf("model:       %s\n", status.EmbeddingModel)
	if !status.LastFullIndex.IsZero() {
		fmt.Printf("last index:  %s\n", status.LastFullIndex.Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Println("last index:  never")
	}
	return nil
}
