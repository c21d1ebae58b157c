package search

import (
	"sort"
	"strings"

	"github.com/cortexlabs/codeindex/internal/rerank"
	"github.com/cortexlabs/codeindex/internal/storage"
)

// Granularity selects which content tier(s) a search considers.
type Granularity string

const (
	GranularityAuto   Granularity = "auto"
	GranularitySymbol Granularity = "symbol"
	GranularityChunk  Granularity = "chunk"
	GranularityFile   Granularity = "file"
)

// Weights are the per-granularity RRF contribution weights (spec §4.3
// defaults: 1.0/0.7/0.3 for symbol/chunk/file).
type Weights struct {
	Symbol float64
	Chunk  float64
	File   float64
}

// DefaultWeights returns spec's stated defaults.
func DefaultWeights() Weights {
	return Weights{Symbol: 1.0, Chunk: 0.7, File: 0.3}
}

func (w Weights) asMap() map[storage.ContentType]float64 {
	return map[storage.ContentType]float64{
		storage.ContentSymbol: w.Symbol,
		storage.ContentChunk:  w.Chunk,
		storage.ContentFile:   w.File,
	}
}

// Options configures one Search call, covering both the base and "enhanced"
// variants of spec §4.3.
type Options struct {
	Branch      string
	Granularity Granularity
	Limit       int
	Weights     Weights
	RRFK        int
	PathPrefix  string
	FilePatterns []string

	EnableRewriting bool
	EnableReranking bool
	Reranker        rerank.Kind
	RemoteRerankEndpoint string
	EnableCaching   bool
	SkipCache       bool
}

// normalized returns opts with defaults applied. It leaves the query as is;
// cacheKeyPayload lowercases and trims it for the cache key.
func (o Options) normalized() Options {
	out := o
	if out.Limit <= 0 {
		out.Limit = 20
	}
	if out.Weights == (Weights{}) {
		out.Weights = DefaultWeights()
	}
	if out.RRFK <= 0 {
		out.RRFK = DefaultRRFK
	}
	if out.Granularity == "" {
		out.Granularity = GranularityAuto
	}
	patterns := append([]string(nil), out.FilePatterns...)
	sort.Strings(patterns)
	out.FilePatterns = patterns
	return out
}

func contentTypesFor(g Granularity) []storage.ContentType {
	switch g {
	case GranularitySymbol:
		return []storage.ContentType{storage.ContentSymbol}
	case GranularityChunk:
		return []storage.ContentType{storage.ContentChunk}
	case GranularityFile:
		return []storage.ContentType{storage.ContentFile}
	default:
		return nil // auto: no filter, all granularities
	}
}

func cacheKeyPayload(query string, opts Options) map[string]any {
	return map[string]any{
		"query":       strings.ToLower(strings.TrimSpace(query)),
		"branch":      opts.Branch,
		"path_prefix": opts.PathPrefix,
		"granularity": opts.Granularity,
		"limit":       opts.Limit,
		"patterns":    opts.FilePatterns,
		"reranker":    opts.Reranker,
	}
}
