// Package storage persists symbols, chunks, files, edges, full-text rows and
// vectors for one workspace in an embedded relational store.
package storage

import "time"

// SymbolType enumerates the kinds of program entity a Symbol can represent.
type SymbolType string

const (
	SymbolFunction    SymbolType = "FUNCTION"
	SymbolClass       SymbolType = "CLASS"
	SymbolInterface   SymbolType = "INTERFACE"
	SymbolTypeAlias   SymbolType = "TYPE_ALIAS"
	SymbolModule      SymbolType = "MODULE"
	SymbolVariable    SymbolType = "VARIABLE"
)

// Symbol is a named program entity extracted from source (function, class,
// interface, type alias, module, ...).
type Symbol struct {
	ID                string     // stable hash of qualified name + file + position
	Name              string     // short name
	QualifiedName     string     // fully-qualified name
	Type              SymbolType // FUNCTION | CLASS | INTERFACE | TYPE_ALIAS | MODULE | ...
	Language          string     // "go", "python", "typescript", ...
	FilePath          string     // workspace-relative path
	StartLine         int        // 1-indexed, inclusive
	EndLine           int        // 1-indexed, inclusive
	Content           string     // source slice
	Signature         string     // optional rendered signature
	Docstring         string     // optional leading doc comment
	ContentHash       string     // hash of Content
	IsExternal        bool       // third-party/vendor code
	Branch            string     // logical namespace
	UpdatedAt         time.Time
	RevisionID        string // opaque revision/commit marker
	EmbeddingModelID  string // model used for the current vector, if any
}

// ChunkType enumerates chunk granularities.
type ChunkType string

const (
	ChunkSymbol ChunkType = "symbol"
	ChunkBlock  ChunkType = "block"
	ChunkFile   ChunkType = "file"
)

// Chunk is a fixed-size or semantically-bounded slice of text indexed for
// search. A chunk_type=file row holds the whole file (possibly truncated).
type Chunk struct {
	ID             string
	FilePath       string
	StartLine      int
	EndLine        int
	Content        string
	ChunkType      ChunkType
	ParentSymbolID string // optional, non-empty only for ChunkSymbol
	Language       string
	ContentHash    string
	Branch         string
	UpdatedAt      time.Time
}

// FileStatus tracks the indexing state of one file.
type FileStatus string

const (
	FileStatusPending FileStatus = "pending"
	FileStatusIndexed FileStatus = "indexed"
	FileStatusError   FileStatus = "error"
	FileStatusStale   FileStatus = "stale"
)

// FileRecord tracks one source file's indexing state and change-detection
// fingerprint.
type FileRecord struct {
	FilePath     string
	FileHash     string
	Mtime        time.Time
	Size         int64
	LastIndexed  time.Time
	Language     string
	Branch       string
	Status       FileStatus
	SymbolCount  int
	ErrorMessage string
}

// EdgeType enumerates the relationship a symbol-to-symbol Edge represents.
type EdgeType string

const (
	EdgeImports EdgeType = "IMPORTS"
	EdgeCalls   EdgeType = "CALLS"
	EdgeExtends EdgeType = "EXTENDS"
)

// Edge connects two symbols; the graph module (internal/graphidx) consumes
// these to compute PageRank over repo_map.
type Edge struct {
	SourceSymbolID string
	TargetSymbolID string
	Type           EdgeType
	Branch         string
	Confidence     float64
}

// ContentType enumerates the granularity an FTS or vector row indexes.
type ContentType string

const (
	ContentSymbol ContentType = "symbol"
	ContentChunk  ContentType = "chunk"
	ContentFile   ContentType = "file"
)

// FTSRow is one entry in the unified full-text index.
type FTSRow struct {
	ContentID   string
	ContentType ContentType
	FilePath    string
	Name        string
	Content     string
	Branch      string
}

// VectorRow is a single embedding, one row per content_id.
type VectorRow struct {
	ContentID   string
	Embedding   []float32
	Granularity ContentType
	Branch      string
	UpdatedAt   time.Time
}

// RepoMapRow is one PageRank score for a symbol (internal/graphidx output).
type RepoMapRow struct {
	SymbolID  string
	Branch    string
	Rank      float64
	UpdatedAt time.Time
}

// Meta keys stored in the meta table.
const (
	MetaEmbeddingModelID  = "embedding_model_id"
	MetaSchemaVersion     = "schema_version"
	MetaLastFullIndexedAt = "last_full_indexed_at"
)
