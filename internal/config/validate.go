package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProvider   = errors.New("invalid embedding provider")
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")
	ErrEmptyEndpoint     = errors.New("empty embedding endpoint")
	ErrInvalidConcurrency = errors.New("invalid index concurrency")
	ErrInvalidChunkSize  = errors.New("invalid chunk size")
	ErrInvalidWeight     = errors.New("invalid search weight")
	ErrInvalidReranker   = errors.New("invalid reranker kind")
)

// Validate checks that the configuration is complete and internally
// consistent, mirroring the teacher's per-section validate* split.
func Validate(cfg *Config) error {
	var errs []error
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateIndex(&cfg.Index); err != nil {
		errs = append(errs, err)
	}
	if err := validateChunking(&cfg.Chunking); err != nil {
		errs = append(errs, err)
	}
	if err := validateSearch(&cfg.Search); err != nil {
		errs = append(errs, err)
	}
	return joinErrors(errs)
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error
	provider := strings.ToLower(cfg.Provider)
	if provider != "http" && provider != "mock" {
		errs = append(errs, fmt.Errorf("%w: must be 'http' or 'mock', got %q", ErrInvalidProvider, cfg.Provider))
	}
	if cfg.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidDimensions, cfg.Dimensions))
	}
	if provider == "http" && strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%w: required for the http provider", ErrEmptyEndpoint))
	}
	return joinErrors(errs)
}

func validateIndex(cfg *IndexConfig) error {
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidConcurrency, cfg.Concurrency)
	}
	return nil
}

func validateChunking(cfg *ChunkingConfig) error {
	var errs []error
	if cfg.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: block_size must be positive, got %d", ErrInvalidChunkSize, cfg.BlockSize))
	}
	if cfg.BlockOverlap < 0 || (cfg.BlockSize > 0 && cfg.BlockOverlap >= cfg.BlockSize) {
		errs = append(errs, fmt.Errorf("%w: block_overlap (%d) must be non-negative and less than block_size (%d)", ErrInvalidChunkSize, cfg.BlockOverlap, cfg.BlockSize))
	}
	return joinErrors(errs)
}

func validateSearch(cfg *SearchConfig) error {
	var errs []error
	if cfg.WeightSymbol < 0 || cfg.WeightChunk < 0 || cfg.WeightFile < 0 {
		errs = append(errs, fmt.Errorf("%w: weights cannot be negative", ErrInvalidWeight))
	}
	switch cfg.Reranker {
	case "", "simple", "bm25", "remote":
	default:
		errs = append(errs, fmt.Errorf("%w: %q (valid: simple, bm25, remote, \"\")", ErrInvalidReranker, cfg.Reranker))
	}
	if cfg.Reranker == "remote" && strings.TrimSpace(cfg.RemoteRerankURL) == "" {
		errs = append(errs, fmt.Errorf("%w: remote_rerank_url is required when reranker is 'remote'", ErrInvalidReranker))
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
