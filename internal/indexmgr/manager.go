// Package indexmgr is the Index Manager of spec §4.1: it orchestrates file
// scanning, change detection, symbol/edge/chunk extraction, embedding
// generation and persistence, with bounded concurrency and a content-hash
// embedding cache. Grounded on the teacher's internal/indexer/processor.go
// phase orchestration (collect metadata -> write -> process -> embed) and
// internal/indexer/watcher.go's triggerReindex caller contract, generalized
// from the teacher's single-pass chunk pipeline into the full
// initialize/index_all/refresh/index_file/rebuild surface spec §4.1 names.
package indexmgr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cortexlabs/codeindex/internal/contentcache"
	"github.com/cortexlabs/codeindex/internal/discovery"
	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/extract"
	"github.com/cortexlabs/codeindex/internal/extract/gosrc"
	"github.com/cortexlabs/codeindex/internal/extract/treesitter"
	"github.com/cortexlabs/codeindex/internal/gitutil"
	"github.com/cortexlabs/codeindex/internal/jobqueue"
	"github.com/cortexlabs/codeindex/internal/lifecycle"
	"github.com/cortexlabs/codeindex/internal/storage"
	"github.com/cortexlabs/codeindex/internal/synccache"
)

// DefaultConcurrency is Phase A's default bounded parallelism (spec §4.1).
const DefaultConcurrency = 8

// ProgressFunc receives (processed, total, phase) updates; phase is one of
// "analyzing", "processing", "embedding" (spec §4.1).
type ProgressFunc func(processed, total int, phase string)

// Config configures a Manager for one workspace.
type Config struct {
	WorkspaceRoot       string
	EmbeddingDimensions int
	Concurrency         int // default DefaultConcurrency
	IgnorePatterns      []string
	Embedder            embed.Config
	ChunkerConfig       extract.ChunkerConfig
	OnProgress          ProgressFunc
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.EmbeddingDimensions <= 0 {
		c.EmbeddingDimensions = 384
	}
	return c
}

// Status reports the Manager's current lifecycle state and bookkeeping.
type Status struct {
	State          lifecycle.State
	Progress       lifecycle.Progress
	Branch         string
	FileCount      int
	LastFullIndex  time.Time
	EmbeddingModel string
}

// Manager drives a workspace to a consistent, queryable state: initialize,
// index_all, refresh, index_file, rebuild, status, close (spec §4.1).
type Manager struct {
	Config Config

	Store     *storage.Store
	Cache     *contentcache.Cache
	SyncCache *synccache.Cache
	Lifecycle *lifecycle.Manager
	Queue     *jobqueue.IndexingQueue
	Extractors *extract.Registry
	Chunker   extract.Chunker
	Embedder  embed.Provider
	GitResolver gitutil.Resolver

	discovery *discovery.Discovery

	branchMu sync.RWMutex
	branch   string
}

// New sets up the lifecycle, extractors, chunker and git resolver without
// touching disk; Initialize opens the stores, sync cache, content cache and
// queue, resolves the branch and builds the embedder.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		Config:      cfg,
		Lifecycle:   lifecycle.New(),
		Extractors:  defaultRegistry(),
		Chunker:     extract.NewChunker(cfg.ChunkerConfig),
		GitResolver: gitutil.NewResolver(),
	}
}

func defaultRegistry() *extract.Registry {
	ts := treesitter.DefaultRegistry()
	extractors := []extract.SymbolExtractor{gosrc.New()}
	for _, lang := range ts.Languages() {
		e, _ := ts.For(lang)
		extractors = append(extractors, e)
	}
	return extract.NewRegistry(extractors...)
}

// Initialize opens the workspace database, resolves the current branch,
// reconciles the embedding model against recorded metadata (wiping vectors
// on rotation), and transitions the lifecycle out of uninitialized (spec
// §4.1 "Initialization").
func (m *Manager) Initialize(ctx context.Context) error {
	paths := storage.DefaultPaths(m.Config.WorkspaceRoot)
	store, err := storage.Open(paths, m.Config.EmbeddingDimensions)
	if err != nil {
		return fmt.Errorf("indexmgr: open storage: %w", err)
	}
	m.Store = store

	isGit := m.GitResolver != nil
	hasher := synccache.NewHasher(isGit && isGitWorkspace(m.Config.WorkspaceRoot))
	syncCache, err := synccache.Load(paths.CachePath, hasher)
	if err != nil {
		return fmt.Errorf("indexmgr: load sync cache: %w", err)
	}
	m.SyncCache = syncCache

	cache, err := contentcache.New(contentcache.DefaultConfig())
	if err != nil {
		return fmt.Errorf("indexmgr: build content cache: %w", err)
	}
	m.Cache = cache

	m.Queue = jobqueue.NewIndexingQueue(jobqueue.DefaultConfig())

	d, err := m.buildDiscovery(ctx)
	if err != nil {
		return err
	}
	m.discovery = d

	m.branchMu.Lock()
	m.branch = m.GitResolver.CurrentBranch(ctx, m.Config.WorkspaceRoot)
	m.branchMu.Unlock()

	provider, err := embed.NewProvider(m.Config.Embedder)
	if err != nil {
		return fmt.Errorf("indexmgr: build embedder: %w", err)
	}
	m.Embedder = provider

	if _, err := embed.CheckRotation(m.Store, modelID(m.Config.Embedder)); err != nil {
		return fmt.Errorf("indexmgr: check embedding model rotation: %w", err)
	}

	return m.Lifecycle.Transition(lifecycle.StateIndexing)
}

func modelID(cfg embed.Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return "default"
}

func isGitWorkspace(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".git"))
	return err == nil
}

// buildDiscovery derives the effective ignore glob set, merging caller
// config with nested-worktree exclusions (spec §4.1 "File enumeration").
func (m *Manager) buildDiscovery(ctx context.Context) (*discovery.Discovery, error) {
	ignore := append([]string(nil), m.Config.IgnorePatterns...)
	if m.GitResolver != nil {
		if worktrees, err := m.GitResolver.Worktrees(ctx, m.Config.WorkspaceRoot); err == nil {
			ignore = append(ignore, gitutil.ExclusionGlobs(m.Config.WorkspaceRoot, worktrees)...)
		}
	}
	return discovery.New(m.Config.WorkspaceRoot, ignore)
}

func (m *Manager) languageFor(relPath string) (string, bool) {
	return discovery.LanguageFor(relPath)
}

func (m *Manager) currentBranch() string {
	m.branchMu.RLock()
	defer m.branchMu.RUnlock()
	return m.branch
}

// Close releases the database, FTS index, content cache and embedder.
func (m *Manager) Close() error {
	if m.Cache != nil {
		m.Cache.Close()
	}
	if m.Queue != nil {
		m.Queue.Shutdown()
	}
	if m.Embedder != nil {
		_ = m.Embedder.Close()
	}
	if m.Store != nil {
		return m.Store.Close()
	}
	return nil
}

// Status reports the Manager's lifecycle state and basic bookkeeping.
func (m *Manager) Status() Status {
	s := Status{State: m.Lifecycle.State(), Progress: m.Lifecycle.Progress(), Branch: m.currentBranch()}
	if m.Store != nil {
		if recs, err := m.Store.Files.AllForBranch(m.currentBranch()); err == nil {
			s.FileCount = len(recs)
		}
		if v, ok, _ := m.Store.Meta.Get(storage.MetaEmbeddingModelID); ok {
			s.EmbeddingModel = v
		}
		if v, ok, _ := m.Store.Meta.Get(storage.MetaLastFullIndexedAt); ok {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				s.LastFullIndex = ts
			}
		}
	}
	return s
}

// Symbols, Chunks, Files, Edges and Meta expose the underlying stores for
// internal/search and other read-only consumers without requiring a full
// Manager lifecycle.
func (m *Manager) Symbols() *storage.SymbolStore { return m.Store.Symbols }
func (m *Manager) Chunks() *storage.ChunkStore   { return m.Store.Chunks }
func (m *Manager) Files() *storage.FileStore     { return m.Store.Files }
func (m *Manager) Edges() *storage.EdgeStore     { return m.Store.Edges }
func (m *Manager) Meta() *storage.MetaStore      { return m.Store.Meta }

func (m *Manager) reportProgress(processed, total int, phase string) {
	_ = m.Lifecycle.UpdateProgress(lifecycle.Progress{Current: processed, Total: total, Phase: phase})
	if m.Config.OnProgress != nil {
		m.Config.OnProgress(processed, total, phase)
	}
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func filepathJoin(root, rel string) string { return filepath.Join(root, rel) }
