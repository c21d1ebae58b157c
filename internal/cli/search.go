package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/codeindex/internal/config"
	"github.com/cortexlabs/codeindex/internal/contentcache"
	"github.com/cortexlabs/codeindex/internal/embed"
	"github.com/cortexlabs/codeindex/internal/gitutil"
	"github.com/cortexlabs/codeindex/internal/search"
	"github.com/cortexlabs/codeindex/internal/storage"
)

var (
	searchBranch      string
	searchGranularity string
	searchLimit       int
	searchPathPrefix  string
	searchRewrite     bool
	searchRerank      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a hybrid (lexical + vector) search over the indexed workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchBranch, "branch", "", "branch to search (default: current)")
	searchCmd.Flags().StringVar(&searchGranularity, "granularity", "auto", "auto|symbol|chunk|file")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (default from config)")
	searchCmd.Flags().StringVar(&searchPathPrefix, "path", "", "restrict to files under this path prefix")
	searchCmd.Flags().BoolVar(&searchRewrite, "rewrite", false, "enable query rewriting")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "enable reranking")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store, err := storage.Open(storage.DefaultPaths(rootDir), cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	cache, err := contentcache.New(contentcache.DefaultConfig())
	if err != nil {
		return fmt.Errorf("build content cache: %w", err)
	}
	defer cache.Close()

	branch := searchBranch
	if branch == "" {
		branch = gitutil.NewResolver().CurrentBranch(ctx, rootDir)
	}

	provider, err := embed.NewProvider(embed.Config{
		Provider:   cfg.Embedding.Provider,
		Endpoint:   cfg.Embedding.Endpoint,
		Dimensions: cfg.Embedding.Dimensions,
		Model:      cfg.Embedding.Model,
	})
	var queryVector []float32
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: embedding provider unavailable (%v); falling back to lexical-only search\n", err)
	} else {
		defer provider.Close()
		vecs, embedErr := provider.Embed(ctx, []string{query}, embed.EmbedModeQuery)
		if embedErr != nil {
			fmt.Fprintf(os.Stderr, "warning: query embedding failed (%v); falling back to lexical-only search\n", embedErr)
		} else if len(vecs) > 0 {
			queryVector = vecs[0]
		}
	}

	opts := cfg.ToSearchOptions()
	opts.Branch = branch
	opts.Granularity = search.Granularity(searchGranularity)
	opts.PathPrefix = searchPathPrefix
	opts.EnableRewriting = searchRewrite
	opts.EnableReranking = searchRerank || opts.EnableReranking
	if searchLimit > 0 {
		opts.Limit = searchLimit
	}

	engine := search.New(store, cache)
	result, err := engine.Search(ctx, query, queryVector, opts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printSearchResult(result)
	return nil
}

func printSearchResult(result *search.Result) {
	if len(result.Symbols) > 0 {
		fmt.Println("Symbols:")
		for _, s := range result.Symbols {
			fmt.Printf("  %s:%d  %s (%s)\n", s.FilePath, s.StartLine, s.QualifiedName, s.Type)
		}
	}
	if len(result.Chunks) > 0 {
		fmt.Println("Chunks:")
		for _, c := range result.Chunks {
			fmt.Printf("  %s:%d-%d  %s\n", c.FilePath, c.StartLine, c.EndLine, preview(c.Content))
		}
	}
	if len(result.Files) > 0 {
		fmt.Println("Files:")
		for _, f := range result.Files {
			fmt.Printf("  %.4f  %s\n", f.Score, f.FilePath)
		}
	}
	if len(result.Symbols) == 0 && len(result.Chunks) == 0 && len(result.Files) == 0 {
		fmt.Println("no results")
	}
}

func preview(content string) string {
	line := strings.SplitN(strings.TrimSpace(content), "\n", 2)[0]
	if len(line) > 80 {
		return line[:80] + "..."
	}
	return line
}
