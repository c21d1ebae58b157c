package indexmgr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/graphidx"
	"github.com/cortexlabs/codeindex/internal/jobqueue"
	"github.com/cortexlabs/codeindex/internal/lifecycle"
	"github.com/cortexlabs/codeindex/internal/storage"
)

// IndexAll walks the workspace and drives every discovered file through the
// full Phase A / Phase B pipeline (spec §4.1 "Full index / refresh").
func (m *Manager) IndexAll(ctx context.Context) error {
	files, err := m.discovery.Walk()
	if err != nil {
		return fmt.Errorf("indexmgr: walk workspace: %w", err)
	}

	abs := make([]string, len(files))
	for i, f := range files {
		abs[i] = f.Path
	}
	m.reportProgress(0, len(abs), "analyzing")
	if _, err := m.SyncCache.FindChanged(abs); err != nil {
		return fmt.Errorf("indexmgr: scan sync cache: %w", err)
	}

	rel := make([]string, len(files))
	for i, f := range files {
		rel[i] = f.RelPath
	}
	if err := m.runPipeline(ctx, rel, newRunReuse()); err != nil {
		return err
	}

	if err := m.SyncCache.Save(); err != nil {
		return fmt.Errorf("indexmgr: save sync cache: %w", err)
	}
	if err := m.Store.Meta.Set(storage.MetaLastFullIndexedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("indexmgr: record last full index time: %w", err)
	}
	m.refreshRepoMap()
	return m.Lifecycle.Transition(lifecycle.StateReady)
}

// Refresh invokes the Sync Cache's find_changed and processes
// added ∪ modified through Phase A/B; removed files are synchronously
// deleted (spec §4.1 "Refresh").
func (m *Manager) Refresh(ctx context.Context) error {
	if m.Lifecycle.State() != lifecycle.StateIndexing {
		if err := m.Lifecycle.Transition(lifecycle.StateIndexing); err != nil {
			return err
		}
	}

	files, err := m.discovery.Walk()
	if err != nil {
		return fmt.Errorf("indexmgr: walk workspace: %w", err)
	}
	abs := make([]string, len(files))
	absToRel := make(map[string]string, len(files))
	for i, f := range files {
		abs[i] = f.Path
		absToRel[f.Path] = f.RelPath
	}

	m.reportProgress(0, len(abs), "analyzing")
	changes, err := m.SyncCache.FindChanged(abs)
	if err != nil {
		return fmt.Errorf("indexmgr: find changed files: %w", err)
	}

	branch := m.currentBranch()
	reuse := newRunReuse()
	for _, p := range changes.Removed {
		relPath, ok := absToRel[p]
		if !ok {
			relPath, _ = filepath.Rel(m.Config.WorkspaceRoot, p)
		}
		// Snapshot the departing file's embeddings by content_hash before its
		// rows are deleted: a later add/modify in this same run that carries
		// identical content under a new path (a rename) reuses them instead
		// of forcing a fresh Embedder call (spec §8 Scenario 2).
		snapshotRemovedFile(m.Store, reuse, relPath, branch)
		if err := m.Store.DeleteFileCascade(relPath, branch); err != nil {
			return fmt.Errorf("indexmgr: delete removed file %s: %w", relPath, err)
		}
	}

	var toProcess []string
	for _, p := range append(append([]string{}, changes.Added...), changes.Modified...) {
		toProcess = append(toProcess, absToRel[p])
	}

	if err := m.runPipeline(ctx, toProcess, reuse); err != nil {
		return err
	}

	if err := m.SyncCache.Save(); err != nil {
		return fmt.Errorf("indexmgr: save sync cache: %w", err)
	}
	m.refreshRepoMap()
	return m.Lifecycle.Transition(lifecycle.StateReady)
}

// refreshRepoMap rebuilds the repo_map PageRank view for the current branch
// as a best-effort step (spec §3a): failures are logged, never fatal, since
// lexical/vector search never depends on repo_map.
func (m *Manager) refreshRepoMap() {
	branch := m.currentBranch()
	if err := graphidx.BuildAndRank(m.Store, branch, graphidx.DefaultConfig()); err != nil {
		log.Printf("indexmgr: refresh repo_map for %s: %v", branch, err)
	}
}

// IndexFile runs the per-file pipeline for a single path outside any
// full index/refresh run (e.g. a caller reindexing one known-changed file).
func (m *Manager) IndexFile(ctx context.Context, relPath string) error {
	if err := m.runPipeline(ctx, []string{relPath}, newRunReuse()); err != nil {
		return err
	}
	return m.Lifecycle.Transition(lifecycle.StateReady)
}

// Rebuild deletes every row for the current branch and re-runs the full
// index path (spec §4.1 "Rebuild").
func (m *Manager) Rebuild(ctx context.Context) error {
	branch := m.currentBranch()
	if err := m.Store.DeleteBranchCascade(branch); err != nil {
		return fmt.Errorf("indexmgr: rebuild: clear branch: %w", err)
	}
	return m.IndexAll(ctx)
}

// runPipeline drives relPaths through Phase A (bounded-concurrency
// processing, deferred embeddings) then Phase B (flush pending embeddings,
// resolve edges). Failures are isolated per file except storage errors,
// which are fatal and transition the lifecycle to error (spec §4.1 "Failure
// semantics").
func (m *Manager) runPipeline(ctx context.Context, relPaths []string, reuse *runReuse) error {
	if len(relPaths) == 0 {
		return nil
	}
	if m.Lifecycle.State() != lifecycle.StateIndexing {
		if err := m.Lifecycle.Transition(lifecycle.StateIndexing); err != nil {
			return err
		}
	}

	branch := m.currentBranch()
	symbolMap := newSharedSymbolMap()
	pending := newPendingBuffer()

	sem := semaphore.NewWeighted(int64(m.Config.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	var processed int32
	total := len(relPaths)

	for _, rel := range relPaths {
		rel := rel
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			absPath := filepath.Join(m.Config.WorkspaceRoot, rel)
			outcome := m.processFile(gctx, absPath, rel, branch, symbolMap, pending, reuse)
			n := atomic.AddInt32(&processed, 1)
			m.reportProgress(int(n), total, "processing")
			if outcome.Err != nil && isFatalStorageErr(outcome.Err) {
				return outcome.Err
			}
			return nil
		})
	}

	// Phase A errors from per-file I/O/parse failures are swallowed (already
	// recorded as FileRecord status=error); only storage-layer failures
	// (returned above) cause Wait to report an error.
	if err := g.Wait(); err != nil {
		_ = m.Lifecycle.Transition(lifecycle.StateError)
		return fmt.Errorf("indexmgr: storage failure during processing: %w", err)
	}

	// Edge resolution: the shared symbol map is only complete once every
	// file in this run has settled.
	if err := m.resolveAndPersistEdges(pending.drainEdges(), symbolMap); err != nil {
		_ = m.Lifecycle.Transition(lifecycle.StateError)
		return fmt.Errorf("indexmgr: persist edges: %w", err)
	}

	// Phase B: flush pending embeddings.
	if err := m.flushEmbeddings(ctx, pending.drainEmbeds(), branch); err != nil {
		// Embedder failures are non-fatal (spec §7 EmbedderFailure): lexical
		// search remains functional, a subsequent refresh retries.
		_ = err
	}

	return nil
}

func isFatalStorageErr(err error) bool {
	return err != nil && errors.Is(err, storage.ErrStorageWrite)
}

// flushEmbeddings runs the pending-embeddings buffer through the Batch
// Processor and writes resulting vectors (spec §4.1 "Phase B").
func (m *Manager) flushEmbeddings(ctx context.Context, items []pendingEmbedItem, branch string) error {
	if len(items) == 0 || m.Embedder == nil {
		return nil
	}
	m.reportProgress(0, len(items), "embedding")

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Content
	}

	policy := embed.BatchPolicyFor(m.Config.Embedder.Provider)
	vectors, err := embed.EmbedWithProgress(ctx, m.Embedder, texts, embed.EmbedModePassage, policy, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrEmbedderFailure, err)
	}

	now := time.Now()
	rows := make([]storage.VectorRow, len(items))
	for i, it := range items {
		rows[i] = storage.VectorRow{ContentID: it.ContentID, Embedding: vectors[i], Granularity: it.Granularity, Branch: branch, UpdatedAt: now}
	}
	if err := m.submitBatchWrite(ctx, func(context.Context) (any, error) {
		return nil, m.Store.Vectors.PutAll(rows)
	}); err != nil {
		return err
	}
	m.reportProgress(len(items), len(items), "embedding")
	return nil
}

// submitBatchWrite runs fn through the IndexingQueue under the batch-write
// kind when the queue is available, falling back to a direct call otherwise
// (e.g. in tests that construct a Manager without calling Initialize).
func (m *Manager) submitBatchWrite(ctx context.Context, fn jobqueue.Fn) error {
	if m.Queue == nil {
		_, err := fn(ctx)
		return err
	}
	_, err := m.Queue.SubmitAndWait(ctx, jobqueue.KindBatchWrite, fn)
	return err
}
