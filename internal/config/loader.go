package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads configuration from file and environment variables.
type Loader interface {
	// Load returns the merged configuration. Priority, highest to lowest:
	// environment variables (CODEINDEX_*) > .codeindex/config.yml > defaults.
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".codeindex")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODEINDEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("embedding.provider")
	_ = v.BindEnv("embedding.model")
	_ = v.BindEnv("embedding.dimensions")
	_ = v.BindEnv("embedding.endpoint")
	_ = v.BindEnv("index.concurrency")
	_ = v.BindEnv("index.watch_debounce_ms")
	_ = v.BindEnv("search.reranker")
	_ = v.BindEnv("search.remote_rerank_url")
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)

	v.SetDefault("index.ignore_patterns", d.Index.IgnorePatterns)
	v.SetDefault("index.concurrency", d.Index.Concurrency)
	v.SetDefault("index.watch_debounce_ms", d.Index.WatchDebounceMs)

	v.SetDefault("chunking.file_byte_cap", d.Chunking.FileByteCap)
	v.SetDefault("chunking.min_symbol_chunk", d.Chunking.MinSymbolChunk)
	v.SetDefault("chunking.block_size", d.Chunking.BlockSize)
	v.SetDefault("chunking.block_overlap", d.Chunking.BlockOverlap)

	v.SetDefault("search.default_limit", d.Search.DefaultLimit)
	v.SetDefault("search.rrf_k", d.Search.RRFK)
	v.SetDefault("search.weight_symbol", d.Search.WeightSymbol)
	v.SetDefault("search.weight_chunk", d.Search.WeightChunk)
	v.SetDefault("search.weight_file", d.Search.WeightFile)
	v.SetDefault("search.reranker", d.Search.Reranker)
	v.SetDefault("search.remote_rerank_url", d.Search.RemoteRerankURL)
	v.SetDefault("search.enable_caching", d.Search.EnableCaching)
	v.SetDefault("search.overfetch_filtered", d.Search.OverfetchFiltered)
	v.SetDefault("search.overfetch_default", d.Search.OverfetchDefault)
}

// LoadConfig loads configuration rooted at the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration rooted at rootDir.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
