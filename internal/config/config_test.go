package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "http", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 8, cfg.Index.Concurrency)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, 1.0, cfg.Search.WeightSymbol)
}

func TestLoadConfigUsesDefaultsWhenNoFileExists(t *testing.T) {
	root := t.TempDir()
	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.Provider, cfg.Embedding.Provider)
	assert.Equal(t, Default().Search.RRFK, cfg.Search.RRFK)
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".codeindex"), 0o755))
	yaml := []byte("embedding:\n  provider: mock\n  dimensions: 256\nsearch:\n  rrf_k: 30\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codeindex", "config.yml"), yaml, 0o644))

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 256, cfg.Embedding.Dimensions)
	assert.Equal(t, 30, cfg.Search.RRFK)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".codeindex"), 0o755))
	yaml := []byte("embedding:\n  provider: mock\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codeindex", "config.yml"), yaml, 0o644))

	t.Setenv("CODEINDEX_EMBEDDING_PROVIDER", "http")
	t.Setenv("CODEINDEX_EMBEDDING_ENDPOINT", "http://127.0.0.1:9999")

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Embedding.Provider)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Embedding.Endpoint)
}

func TestValidateRejectsInvalidProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "bogus"
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestValidateRejectsNonPositiveDimensions(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Dimensions = 0
	assert.ErrorIs(t, Validate(cfg), ErrInvalidDimensions)
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Index.Concurrency = 0
	assert.ErrorIs(t, Validate(cfg), ErrInvalidConcurrency)
}

func TestValidateRejectsOverlapGreaterThanBlockSize(t *testing.T) {
	cfg := Default()
	cfg.Chunking.BlockSize = 100
	cfg.Chunking.BlockOverlap = 200
	assert.ErrorIs(t, Validate(cfg), ErrInvalidChunkSize)
}

func TestValidateRejectsRemoteRerankerWithoutURL(t *testing.T) {
	cfg := Default()
	cfg.Search.Reranker = "remote"
	cfg.Search.RemoteRerankURL = ""
	assert.ErrorIs(t, Validate(cfg), ErrInvalidReranker)
}

func TestValidateReturnsMultipleErrorsCombined(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "bogus"
	cfg.Index.Concurrency = -1
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestToIndexManagerConfigCarriesSettingsThrough(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "mock"
	mgrCfg := cfg.ToIndexManagerConfig("/tmp/workspace")
	assert.Equal(t, "/tmp/workspace", mgrCfg.WorkspaceRoot)
	assert.Equal(t, "mock", mgrCfg.Embedder.Provider)
	assert.Equal(t, cfg.Index.Concurrency, mgrCfg.Concurrency)
}

func TestToSearchOptionsCarriesWeightsThrough(t *testing.T) {
	cfg := Default()
	opts := cfg.ToSearchOptions()
	assert.Equal(t, cfg.Search.WeightSymbol, opts.Weights.Symbol)
	assert.Equal(t, cfg.Search.RRFK, opts.RRFK)
}
