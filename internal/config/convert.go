package config

import (
	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/extract"
	"github.com/cortexlabs/codeindex/internal/indexmgr"
	"github.com/cortexlabs/codeindex/internal/rerank"
	"github.com/cortexlabs/codeindex/internal/search"
)

// ToIndexManagerConfig converts c to an indexmgr.Config rooted at rootDir.
func (c *Config) ToIndexManagerConfig(rootDir string) indexmgr.Config {
	return indexmgr.Config{
		WorkspaceRoot:       rootDir,
		EmbeddingDimensions: c.Embedding.Dimensions,
		Concurrency:         c.Index.Concurrency,
		IgnorePatterns:      c.Index.IgnorePatterns,
		Embedder: embed.Config{
			Provider:   c.Embedding.Provider,
			Endpoint:   c.Embedding.Endpoint,
			Dimensions: c.Embedding.Dimensions,
			Model:      c.Embedding.Model,
		},
		ChunkerConfig: extract.ChunkerConfig{
			FileByteCap:    c.Chunking.FileByteCap,
			MinSymbolChunk: c.Chunking.MinSymbolChunk,
			BlockSize:      c.Chunking.BlockSize,
			BlockOverlap:   c.Chunking.BlockOverlap,
		},
	}
}

// ToSearchOptions builds the default search.Options for this configuration;
// callers override per-request fields (query-specific limit, branch, etc.)
// on the returned value.
func (c *Config) ToSearchOptions() search.Options {
	return search.Options{
		Limit: c.Search.DefaultLimit,
		Weights: search.Weights{
			Symbol: c.Search.WeightSymbol,
			Chunk:  c.Search.WeightChunk,
			File:   c.Search.WeightFile,
		},
		RRFK:            c.Search.RRFK,
		EnableReranking: c.Search.Reranker != "",
		Reranker:        rerank.Kind(c.Search.Reranker),
		RemoteRerankEndpoint: c.Search.RemoteRerankURL,
		EnableCaching:   c.Search.EnableCaching,
	}
}
