package indexmgr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cortexlabs/codeindex/internal/extract"
	"github.com/cortexlabs/codeindex/internal/storage"
)

// vendorDirs marks paths whose owning file is treated as third-party code
// (spec §4.1 step 2 "is_external").
var vendorDirs = []string{"vendor/", "node_modules/", "third_party/", ".git/"}

func isExternalPath(relPath string) bool {
	for _, d := range vendorDirs {
		if strings.Contains(relPath, d) {
			return true
		}
	}
	return false
}

// sharedSymbolMap is the per-run lookup from symbol ID to full Symbol, plus
// a qualified-name index so edge extraction can resolve RawEdge endpoints
// without re-querying storage per file (spec §4.1 "Shared symbol map").
type sharedSymbolMap struct {
	mu      sync.Mutex
	byID    map[string]storage.Symbol
	byQName map[string]string // qualified name -> id
}

func newSharedSymbolMap() *sharedSymbolMap {
	return &sharedSymbolMap{byID: map[string]storage.Symbol{}, byQName: map[string]string{}}
}

// removeStale deletes a file's prior symbol IDs from the map before its new
// symbols are added, per spec's explicit ordering requirement.
func (m *sharedSymbolMap) removeStale(prior []storage.Symbol) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range prior {
		delete(m.byID, s.ID)
		delete(m.byQName, s.QualifiedName)
	}
}

func (m *sharedSymbolMap) add(symbols []storage.Symbol) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range symbols {
		m.byID[s.ID] = s
		m.byQName[s.QualifiedName] = s.ID
	}
}

func (m *sharedSymbolMap) resolve(qualifiedName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byQName[qualifiedName]
	return id, ok
}

// pendingEmbedItem is one symbol or chunk whose content_hash missed the
// embedding-reuse snapshot and needs a real Embedder call in Phase B.
type pendingEmbedItem struct {
	ContentID   string
	Content     string
	Granularity storage.ContentType
}

// pendingEdge is a RawEdge captured during Phase A, resolved against the
// fully-populated sharedSymbolMap once every file in the run has settled
// (forward references across files are otherwise unresolvable while Phase A
// is still running unordered).
type pendingEdge struct {
	Branch string
	Raw    extract.RawEdge
}

// pendingBuffer accumulates cross-file state appended-to concurrently during
// Phase A; flush takes everything and leaves it empty (spec §5 "splice/drain
// pattern").
type pendingBuffer struct {
	mu     sync.Mutex
	embeds []pendingEmbedItem
	edges  []pendingEdge
}

func newPendingBuffer() *pendingBuffer { return &pendingBuffer{} }

func (b *pendingBuffer) addEmbeds(items []pendingEmbedItem) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.embeds = append(b.embeds, items...)
}

func (b *pendingBuffer) addEdges(branch string, raws []extract.RawEdge) {
	if len(raws) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range raws {
		b.edges = append(b.edges, pendingEdge{Branch: branch, Raw: r})
	}
}

func (b *pendingBuffer) drainEmbeds() []pendingEmbedItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.embeds
	b.embeds = nil
	return out
}

func (b *pendingBuffer) drainEdges() []pendingEdge {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.edges
	b.edges = nil
	return out
}

// fileOutcome is the per-file result of Phase A, used by the caller to
// update progress and decide whether the file's FileRecord already reflects
// an error.
type fileOutcome struct {
	FilePath string
	Err      error // non-nil only for locally-recoverable FileIO/ExtractorParse errors
}

// processFile runs steps 1-11 of spec §4.1 for one file, deferring the
// actual Embedder call: chunks/symbols needing embeddings are appended to
// pending instead. branch is snapshotted by the caller at the start of the
// file's pipeline (spec §5 "Branch changes during indexing").
func (m *Manager) processFile(ctx context.Context, absPath, relPath, branch string, symbolMap *sharedSymbolMap, pending *pendingBuffer, reuse *runReuse) fileOutcome {
	// Step 1: read content and metadata.
	info, err := os.Stat(absPath)
	if err != nil {
		m.markFileError(relPath, branch, err)
		return fileOutcome{FilePath: relPath, Err: err}
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		m.markFileError(relPath, branch, err)
		return fileOutcome{FilePath: relPath, Err: err}
	}

	// Step 2: is_external.
	isExternal := isExternalPath(relPath)

	language, _ := m.languageFor(relPath)
	extractor, ok := m.Extractors.For(language)
	if !ok {
		// No registered extractor for this language: still chunk the whole
		// file so it is lexically/vector searchable at file granularity.
		return m.persistFile(ctx, relPath, branch, language, content, nil, nil, symbolMap, pending, reuse)
	}

	// Step 3: symbol extraction.
	extraction, err := extractor.Extract(ctx, relPath, content)
	if err != nil {
		m.markFileError(relPath, branch, err)
		return fileOutcome{FilePath: relPath, Err: err}
	}
	for i := range extraction.Symbols {
		extraction.Symbols[i].IsExternal = extraction.Symbols[i].IsExternal || isExternal
	}

	return m.persistFile(ctx, relPath, branch, language, content, extraction.Symbols, extraction.Edges, symbolMap, pending, reuse)
}

func (m *Manager) markFileError(relPath, branch string, cause error) {
	tx, err := m.Store.DB.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()
	_ = m.Store.Files.Put(tx, storage.FileRecord{
		FilePath: relPath, Branch: branch, Status: storage.FileStatusError,
		ErrorMessage: cause.Error(), LastIndexed: time.Now(),
	})
	_ = tx.Commit()
}

// persistFile implements steps 4-11: snapshot, delete-then-insert, chunk,
// partition embeddings, queue edges, update the FileRecord.
func (m *Manager) persistFile(
	ctx context.Context,
	relPath, branch, language string,
	content []byte,
	rawSymbols []extract.RawSymbol,
	rawEdges []extract.RawEdge,
	symbolMap *sharedSymbolMap,
	pending *pendingBuffer,
	reuse *runReuse,
) fileOutcome {
	// Step 4: prior symbols for this file ("stale symbol IDs").
	priorSymbols, err := m.Store.Symbols.ByFile(relPath, branch)
	if err != nil {
		return fileOutcome{FilePath: relPath, Err: fmt.Errorf("load prior symbols: %w", err)}
	}
	priorChunks, err := m.Store.Chunks.ByFile(relPath, branch)
	if err != nil {
		return fileOutcome{FilePath: relPath, Err: fmt.Errorf("load prior chunks: %w", err)}
	}

	// Step 5: embedding reuse snapshot, first-entry-wins on hash collision.
	// reuse is shared across the whole run (not just this file) so a file
	// renamed earlier in the same run still finds its embedding here.
	for _, s := range priorSymbols {
		reuse.snapshot(m.Store, s.ID, s.ContentHash, storage.ContentSymbol)
	}
	for _, c := range priorChunks {
		reuse.snapshot(m.Store, c.ID, c.ContentHash, contentTypeForChunk(c.ChunkType))
	}

	symbolMap.removeStale(priorSymbols)

	// Step 6: delete-then-insert unit (symbols, chunks, FTS, stale edges).
	if err := m.Store.DeleteFileCascade(relPath, branch); err != nil {
		return fileOutcome{FilePath: relPath, Err: fmt.Errorf("delete file cascade: %w", err)}
	}

	now := time.Now()
	symbols := make([]storage.Symbol, len(rawSymbols))
	for i, rs := range rawSymbols {
		symbols[i] = storage.Symbol{
			ID:            extract.SymbolID(rs.QualifiedName, relPath, rs.StartLine),
			Name:          rs.Name,
			QualifiedName: rs.QualifiedName,
			Type:          storage.SymbolType(strings.ToUpper(rs.Type)),
			Language:      language,
			FilePath:      relPath,
			StartLine:     rs.StartLine,
			EndLine:       rs.EndLine,
			Content:       rs.Content,
			Signature:     rs.Signature,
			Docstring:     rs.Docstring,
			ContentHash:   contentHash(rs.Content),
			IsExternal:    rs.IsExternal,
			Branch:        branch,
			UpdatedAt:     now,
		}
	}

	// Step 7: persist symbols + FTS rows.
	if len(symbols) > 0 {
		tx, err := m.Store.DB.Begin()
		if err != nil {
			return fileOutcome{FilePath: relPath, Err: fmt.Errorf("%w: begin symbol write: %v", storage.ErrStorageWrite, err)}
		}
		if err := m.Store.Symbols.PutAll(tx, symbols); err != nil {
			tx.Rollback()
			return fileOutcome{FilePath: relPath, Err: err}
		}
		if err := tx.Commit(); err != nil {
			return fileOutcome{FilePath: relPath, Err: fmt.Errorf("%w: commit symbol write: %v", storage.ErrStorageWrite, err)}
		}
		ftsRows := make([]storage.FTSRow, len(symbols))
		for i, s := range symbols {
			ftsRows[i] = storage.FTSRow{ContentID: s.ID, ContentType: storage.ContentSymbol, FilePath: s.FilePath, Name: s.Name, Content: s.Content, Branch: branch}
		}
		if err := m.Store.FTS.PutBatch(ftsRows); err != nil {
			return fileOutcome{FilePath: relPath, Err: fmt.Errorf("index symbol fts rows: %w", err)}
		}
	}
	symbolMap.add(symbols)

	// Step 8: chunk + persist + FTS rows.
	rawChunks := m.Chunker.Chunk(relPath, content, rawSymbols)
	chunks := make([]storage.Chunk, len(rawChunks))
	for i, rc := range rawChunks {
		chunks[i] = storage.Chunk{
			ID:          extract.ChunkID(rc.ChunkType, relPath, rc.StartLine, rc.EndLine),
			FilePath:    relPath,
			StartLine:   rc.StartLine,
			EndLine:     rc.EndLine,
			Content:     rc.Content,
			ChunkType:   storage.ChunkType(rc.ChunkType),
			Language:    language,
			ContentHash: contentHash(rc.Content),
			Branch:      branch,
			UpdatedAt:   now,
		}
		if rc.ChunkType == "symbol" {
			chunks[i].ParentSymbolID = extract.SymbolID(rc.SymbolName, relPath, rc.StartLine)
		}
	}
	if len(chunks) > 0 {
		tx, err := m.Store.DB.Begin()
		if err != nil {
			return fileOutcome{FilePath: relPath, Err: fmt.Errorf("%w: begin chunk write: %v", storage.ErrStorageWrite, err)}
		}
		if err := m.Store.Chunks.PutAll(tx, chunks); err != nil {
			tx.Rollback()
			return fileOutcome{FilePath: relPath, Err: err}
		}
		if err := tx.Commit(); err != nil {
			return fileOutcome{FilePath: relPath, Err: fmt.Errorf("%w: commit chunk write: %v", storage.ErrStorageWrite, err)}
		}
		ftsRows := make([]storage.FTSRow, len(chunks))
		for i, c := range chunks {
			ftsRows[i] = storage.FTSRow{ContentID: c.ID, ContentType: contentTypeForChunk(c.ChunkType), FilePath: c.FilePath, Content: c.Content, Branch: branch}
		}
		if err := m.Store.FTS.PutBatch(ftsRows); err != nil {
			return fileOutcome{FilePath: relPath, Err: fmt.Errorf("index chunk fts rows: %w", err)}
		}
	}

	// Step 9: partition into reused-vector writes vs the pending buffer.
	var reused []storage.VectorRow
	var toEmbed []pendingEmbedItem
	for _, s := range symbols {
		if entry, ok := reuse.lookup(s.ContentHash); ok {
			reused = append(reused, storage.VectorRow{ContentID: s.ID, Embedding: entry.Embedding, Granularity: storage.ContentSymbol, Branch: branch, UpdatedAt: now})
			continue
		}
		toEmbed = append(toEmbed, pendingEmbedItem{ContentID: s.ID, Content: s.Content, Granularity: storage.ContentSymbol})
	}
	for _, c := range chunks {
		ct := contentTypeForChunk(c.ChunkType)
		if entry, ok := reuse.lookup(c.ContentHash); ok {
			reused = append(reused, storage.VectorRow{ContentID: c.ID, Embedding: entry.Embedding, Granularity: ct, Branch: branch, UpdatedAt: now})
			continue
		}
		toEmbed = append(toEmbed, pendingEmbedItem{ContentID: c.ID, Content: c.Content, Granularity: ct})
	}
	if len(reused) > 0 {
		if err := m.Store.Vectors.PutAll(reused); err != nil {
			return fileOutcome{FilePath: relPath, Err: err}
		}
	}
	pending.addEmbeds(toEmbed)

	// Step 10: queue edges for post-Phase-A resolution.
	pending.addEdges(branch, rawEdges)

	// Step 11: FileRecord + sync cache entry (sync cache itself is updated
	// by the caller's FindChanged call, shared across the whole run).
	rec := storage.FileRecord{
		FilePath: relPath, Branch: branch, Language: language,
		Status: storage.FileStatusIndexed, SymbolCount: len(symbols), LastIndexed: now,
	}
	if info, err := os.Stat(filepathJoin(m.Config.WorkspaceRoot, relPath)); err == nil {
		rec.Mtime = info.ModTime()
		rec.Size = info.Size()
	}
	tx, err := m.Store.DB.Begin()
	if err != nil {
		return fileOutcome{FilePath: relPath, Err: fmt.Errorf("%w: begin file record write: %v", storage.ErrStorageWrite, err)}
	}
	if err := m.Store.Files.Put(tx, rec); err != nil {
		tx.Rollback()
		return fileOutcome{FilePath: relPath, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return fileOutcome{FilePath: relPath, Err: fmt.Errorf("%w: commit file record write: %v", storage.ErrStorageWrite, err)}
	}

	return fileOutcome{FilePath: relPath}
}

type reuseEntry struct {
	Embedding   []float32
	Granularity storage.ContentType
}

// runReuse is a content_hash -> embedding lookup that lives for the whole
// duration of one IndexAll/Refresh call, not just one file. A renamed file
// (old path deleted, new path added in the same run) still reuses its
// embedding as long as the byte content is unchanged, since the lookup key
// is the content hash rather than the file's own prior rows (spec §8
// Scenario 2). Safe for concurrent use from Phase A's worker goroutines.
type runReuse struct {
	mu      sync.Mutex
	entries map[string]reuseEntry
}

func newRunReuse() *runReuse {
	return &runReuse{entries: map[string]reuseEntry{}}
}

// snapshot reads the current vector for a stale content row (before it is
// deleted) and records it under its content_hash, keeping the first entry
// found on a hash collision (spec §4.1 step 5).
func (r *runReuse) snapshot(store *storage.Store, contentID, contentHash string, granularity storage.ContentType) {
	r.mu.Lock()
	if _, exists := r.entries[contentHash]; exists {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	embedding, ok, err := store.Vectors.Get(contentID)
	if err != nil || !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[contentHash]; !exists {
		r.entries[contentHash] = reuseEntry{Embedding: embedding, Granularity: granularity}
	}
}

func (r *runReuse) lookup(contentHash string) (reuseEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[contentHash]
	return e, ok
}

// snapshotRemovedFile records the embeddings of a file about to be deleted
// from storage entirely (spec §4.1 "Refresh": removed files), so a later
// file in the same run that reintroduces identical content under a new path
// (a rename) still finds its embedding in reuse instead of forcing a fresh
// Embedder call.
func snapshotRemovedFile(store *storage.Store, reuse *runReuse, relPath, branch string) {
	if priorSymbols, err := store.Symbols.ByFile(relPath, branch); err == nil {
		for _, s := range priorSymbols {
			reuse.snapshot(store, s.ID, s.ContentHash, storage.ContentSymbol)
		}
	}
	if priorChunks, err := store.Chunks.ByFile(relPath, branch); err == nil {
		for _, c := range priorChunks {
			reuse.snapshot(store, c.ID, c.ContentHash, contentTypeForChunk(c.ChunkType))
		}
	}
}

func contentTypeForChunk(ct storage.ChunkType) storage.ContentType {
	if ct == storage.ChunkFile {
		return storage.ContentFile
	}
	return storage.ContentChunk
}

// resolveAndPersistEdges resolves every queued RawEdge against symbolMap
// (fully populated once Phase A has settled) and persists the resolvable
// ones. Edges referencing an unresolved qualified name (external symbol, or
// a file that failed extraction) are dropped rather than stored with a
// dangling endpoint.
func (m *Manager) resolveAndPersistEdges(edges []pendingEdge, symbolMap *sharedSymbolMap) error {
	if len(edges) == 0 {
		return nil
	}
	byBranch := map[string][]storage.Edge{}
	for _, pe := range edges {
		sourceID, ok := symbolMap.resolve(pe.Raw.SourceQualifiedName)
		if !ok {
			continue
		}
		targetID, ok := symbolMap.resolve(pe.Raw.TargetQualifiedName)
		if !ok {
			continue
		}
		byBranch[pe.Branch] = append(byBranch[pe.Branch], storage.Edge{
			SourceSymbolID: sourceID, TargetSymbolID: targetID,
			Type: storage.EdgeType(strings.ToUpper(pe.Raw.Type)), Branch: pe.Branch, Confidence: 1.0,
		})
	}
	for branch, rows := range byBranch {
		tx, err := m.Store.DB.Begin()
		if err != nil {
			return fmt.Errorf("%w: begin edge write: %v", storage.ErrStorageWrite, err)
		}
		if err := m.Store.Edges.PutAll(tx, rows); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit edge write for branch %s: %v", storage.ErrStorageWrite, branch, err)
		}
	}
	return nil
}
