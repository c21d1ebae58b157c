// Package watch drives incremental reindexing from filesystem change events.
// Grounded on the teacher's internal/indexer/watcher.go IndexerWatcher: an
// fsnotify.Watcher recursively attached to every directory under the
// workspace root, a single debounce timer coalescing bursts of events into
// one reindex trigger, and new directories picked up as they're created.
// Generalized to call an injected Refresher instead of a concrete indexer
// type, and to accept a caller-supplied ignore predicate (internal/discovery)
// instead of a hardcoded two-bucket code/docs pattern split.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce matches the teacher's 500ms coalescing window.
const DefaultDebounce = 500 * time.Millisecond

// Refresher is the subset of internal/indexmgr.Manager this package drives.
// Refresh is expected to consult the Sync Cache itself (spec §4.1) and
// re-derive added/modified/removed from the filesystem; Watcher only tells
// it "something changed, go look."
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Watcher watches a workspace root for file changes and triggers debounced
// incremental refreshes via Refresher.
type Watcher struct {
	root      string
	refresher Refresher
	ignore    func(relPath string) bool
	debounce  time.Duration
	fsw       *fsnotify.Watcher

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	changed map[string]struct{}
}

// New creates a Watcher rooted at root. ignore receives slash-normalized,
// root-relative paths and reports whether they (and, for directories,
// everything beneath them) should be skipped — typically
// (*discovery.Discovery).ShouldIgnore.
func New(root string, refresher Refresher, ignore func(relPath string) bool, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:      root,
		refresher: refresher,
		ignore:    ignore,
		debounce:  debounce,
		fsw:       fsw,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		changed:   make(map[string]struct{}),
	}

	if err := w.addDirectoriesRecursively(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins the watch loop in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop halts the watch loop and waits for it to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		w.fsw.Close()
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	refreshCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return

		case <-w.stopCh:
			stopTimer(timer)
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.shouldProcess(event) {
				continue
			}

			relPath := w.relPath(event.Name)
			w.mu.Lock()
			w.changed[relPath] = struct{}{}
			w.mu.Unlock()

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.ignore(relPath) {
						if err := w.addDirectoriesRecursively(event.Name); err != nil {
							log.Printf("watch: failed to add directory %s: %v", event.Name, err)
						}
					}
				}
			}

			timer = resetTimer(timer, w.debounce, refreshCh)

		case <-refreshCh:
			w.triggerRefresh(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch: error: %v", err)
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// resetTimer stops the previous debounce timer (draining a pending fire) and
// starts a new one that signals refreshCh non-blockingly.
func resetTimer(prev *time.Timer, d time.Duration, refreshCh chan struct{}) *time.Timer {
	if prev != nil {
		if !prev.Stop() {
			select {
			case <-refreshCh:
			default:
			}
		}
	}
	return time.AfterFunc(d, func() {
		select {
		case refreshCh <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) triggerRefresh(ctx context.Context) {
	w.mu.Lock()
	n := len(w.changed)
	w.changed = make(map[string]struct{})
	w.mu.Unlock()

	if n == 0 {
		return
	}

	start := time.Now()
	if err := w.refresher.Refresh(ctx); err != nil {
		log.Printf("watch: refresh failed: %v", err)
		return
	}
	log.Printf("watch: refreshed after %d change(s) in %v", n, time.Since(start))
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !w.ignore(w.relPath(event.Name))
}

func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) addDirectoriesRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("watch: error accessing %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		relPath := w.relPath(path)
		if relPath != "." && w.ignore(relPath) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("watch: failed to watch %s: %v", path, err)
		}
		return nil
	})
}
