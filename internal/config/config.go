// Package config loads codeindex's workspace configuration from
// .codeindex/config.yml with CODEINDEX_-prefixed environment variable
// overrides, mirroring the teacher's internal/config layering.
package config

import (
	"github.com/cortexlabs/codeindex/internal/rerank"
)

// Config is the complete codeindex configuration for one workspace.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
}

// EmbeddingConfig configures the embedding provider (spec §6).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // "http" or "mock"
	Model      string `yaml:"model" mapstructure:"model"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
}

// IndexConfig tunes file discovery and Phase A concurrency (spec §4.1).
type IndexConfig struct {
	IgnorePatterns []string `yaml:"ignore_patterns" mapstructure:"ignore_patterns"`
	Concurrency    int      `yaml:"concurrency" mapstructure:"concurrency"`
	WatchDebounceMs int     `yaml:"watch_debounce_ms" mapstructure:"watch_debounce_ms"`
}

// ChunkingConfig tunes the three chunk granularities (spec §3/§6b).
type ChunkingConfig struct {
	FileByteCap    int `yaml:"file_byte_cap" mapstructure:"file_byte_cap"`
	MinSymbolChunk int `yaml:"min_symbol_chunk" mapstructure:"min_symbol_chunk"`
	BlockSize      int `yaml:"block_size" mapstructure:"block_size"`
	BlockOverlap   int `yaml:"block_overlap" mapstructure:"block_overlap"`
}

// SearchConfig tunes the hybrid search pipeline (spec §4.3/§9).
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit" mapstructure:"default_limit"`
	RRFK                int     `yaml:"rrf_k" mapstructure:"rrf_k"`
	WeightSymbol        float64 `yaml:"weight_symbol" mapstructure:"weight_symbol"`
	WeightChunk         float64 `yaml:"weight_chunk" mapstructure:"weight_chunk"`
	WeightFile          float64 `yaml:"weight_file" mapstructure:"weight_file"`
	Reranker            string  `yaml:"reranker" mapstructure:"reranker"` // simple/bm25/remote/"" (disabled)
	RemoteRerankURL     string  `yaml:"remote_rerank_url" mapstructure:"remote_rerank_url"`
	EnableCaching       bool    `yaml:"enable_caching" mapstructure:"enable_caching"`
	OverfetchFiltered   int     `yaml:"overfetch_filtered" mapstructure:"overfetch_filtered"`
	OverfetchDefault    int     `yaml:"overfetch_default" mapstructure:"overfetch_default"`
}

// Default returns a configuration with spec-mandated defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "http",
			Model:      "bge-small-en-v1.5",
			Dimensions: 384,
			Endpoint:   "http://127.0.0.1:8121",
		},
		Index: IndexConfig{
			IgnorePatterns:  nil,
			Concurrency:     8,
			WatchDebounceMs: 500,
		},
		Chunking: ChunkingConfig{
			FileByteCap:    1 << 20,
			MinSymbolChunk: 40,
			BlockSize:      2000,
			BlockOverlap:   100,
		},
		Search: SearchConfig{
			DefaultLimit:      20,
			RRFK:              60,
			WeightSymbol:      1.0,
			WeightChunk:       0.7,
			WeightFile:        0.3,
			Reranker:          string(rerank.KindSimple),
			EnableCaching:     true,
			OverfetchFiltered: 3,
			OverfetchDefault:  2,
		},
	}
}
