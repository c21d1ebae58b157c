package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/discovery"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
	"github.com/cortexlabs/codeindex/internal/watch"
)

// watchWorkspace keeps mgr running and incrementally refreshing until ctx
// is cancelled (Ctrl+C), mirroring the teacher's planned-but-unimplemented
// --watch flag with internal/watch's fsnotify-driven debounced reindexing.
func watchWorkspace(ctx context.Context, mgr *indexmgr.Manager, rootDir string, cfg *config.Config, quiet bool) error {
	d, err := discovery.New(rootDir, cfg.Index.IgnorePatterns)
	if err != nil {
		return fmt.Errorf("build discovery for watch: %w", err)
	}

	var debounce time.Duration
	if cfg.Index.WatchDebounceMs > 0 {
		debounce = time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
	}

	w, err := watch.New(rootDir, mgr, d.ShouldIgnore, debounce)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if !quiet {
		fmt.Println("watching for changes, press Ctrl+C to stop...")
	}
	w.Start(ctx)
	<-ctx.Done()
	w.Stop()
	return nil
}
