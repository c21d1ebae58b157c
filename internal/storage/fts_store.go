package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// FTSStore is the unified full-text index (spec §3 "FTS row", §6
// "fts_content"). It is backed by bleve rather than sqlite FTS5 so that
// content_type filtering and BM25 scoring come from a single engine used
// identically for symbol/chunk/file rows.
type FTSStore struct {
	index bleve.Index
}

// OpenFTSStore opens (or creates) a disk-backed bleve index at dir.
func OpenFTSStore(dir string) (*FTSStore, error) {
	if _, err := os.Stat(dir); err == nil {
		idx, err := bleve.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open fts index: %w", err)
		}
		return &FTSStore{index: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("create fts index parent dir: %w", err)
	}
	idx, err := bleve.New(dir, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create fts index: %w", err)
	}
	return &FTSStore{index: idx}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	text.Index = true
	text.IncludeTermVectors = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("file_path", keyword)
	doc.AddFieldMappingsAt("content_type", keyword)
	doc.AddFieldMappingsAt("branch", keyword)

	im.DefaultMapping = doc
	return im
}

// Close releases the underlying bleve index.
func (s *FTSStore) Close() error {
	return s.index.Close()
}

// ftsDoc is the document shape indexed for every FTS row.
type ftsDoc struct {
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type"`
	FilePath    string `json:"file_path"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	Branch      string `json:"branch"`
}

func docID(row FTSRow) string {
	return string(row.ContentType) + ":" + row.Branch + ":" + row.ContentID
}

// Put indexes or reindexes one row.
func (s *FTSStore) Put(row FTSRow) error {
	return s.index.Index(docID(row), ftsDoc{
		ContentID:   row.ContentID,
		ContentType: string(row.ContentType),
		FilePath:    row.FilePath,
		Name:        row.Name,
		Content:     row.Content,
		Branch:      row.Branch,
	})
}

// PutBatch indexes many rows in a single bleve batch.
func (s *FTSStore) PutBatch(rows []FTSRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := s.index.NewBatch()
	for _, row := range rows {
		if err := batch.Index(docID(row), ftsDoc{
			ContentID:   row.ContentID,
			ContentType: string(row.ContentType),
			FilePath:    row.FilePath,
			Name:        row.Name,
			Content:     row.Content,
			Branch:      row.Branch,
		}); err != nil {
			return fmt.Errorf("batch index: %w", err)
		}
	}
	return s.index.Batch(batch)
}

// DeleteByContentID removes the FTS row for one content_id/content_type pair.
func (s *FTSStore) DeleteByContentID(contentType ContentType, branch, contentID string) error {
	return s.index.Delete(docID(FTSRow{ContentID: contentID, ContentType: contentType, Branch: branch}))
}

// DeleteByFile removes every FTS row for the given file (used when a file's
// symbols/chunks are replaced or removed during reindexing).
func (s *FTSStore) DeleteByFile(branch, filePath string) error {
	q := bleve.NewConjunctionQuery(
		bleve.NewTermQuery(branch).SetField("branch"),
		bleve.NewTermQuery(filePath).SetField("file_path"),
	)
	req := bleve.NewSearchRequest(q)
	req.Size = 10000
	result, err := s.index.Search(req)
	if err != nil {
		return fmt.Errorf("delete by file search: %w", err)
	}
	batch := s.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	return s.index.Batch(batch)
}

// FTSMatch is one lexical search hit, with BM25-derived rank (absolute
// value, higher is better per spec step 4).
type FTSMatch struct {
	ContentID   string
	ContentType ContentType
	FilePath    string
	Name        string
	Content     string
	Rank        float64
}

// SearchOptions narrows an FTS search by content type and file glob.
type SearchOptions struct {
	Branch       string
	ContentTypes []ContentType // empty means all
	FilePatterns []string      // bleve wildcard patterns, "*" and "?"
	Limit        int
}

// Search runs expandedQuery (already rewritten/expanded by the Query
// Rewriter) against content + name fields, applying content_type and
// file_patterns as post-scoring MATCH filters (spec §6 "FTS query grammar").
func (s *FTSStore) Search(expandedQuery string, opts SearchOptions) ([]FTSMatch, error) {
	qs := bleve.NewDisjunctionQuery(
		queryStringOn(expandedQuery, "content"),
		queryStringOn(expandedQuery, "name"),
	)

	var conj []query.Query
	conj = append(conj, qs)
	if opts.Branch != "" {
		conj = append(conj, bleve.NewTermQuery(opts.Branch).SetField("branch"))
	}
	if len(opts.ContentTypes) > 0 {
		var typeOr []query.Query
		for _, ct := range opts.ContentTypes {
			typeOr = append(typeOr, bleve.NewTermQuery(string(ct)).SetField("content_type"))
		}
		conj = append(conj, bleve.NewDisjunctionQuery(typeOr...))
	}
	if len(opts.FilePatterns) > 0 {
		var pathOr []query.Query
		for _, pat := range opts.FilePatterns {
			w := bleve.NewWildcardQuery(globToWildcard(pat))
			w.SetField("file_path")
			pathOr = append(pathOr, w)
		}
		conj = append(conj, bleve.NewDisjunctionQuery(pathOr...))
	}

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(conj...))
	req.Size = opts.Limit
	if req.Size <= 0 {
		req.Size = 50
	}
	req.Fields = []string{"content_id", "content_type", "file_path", "name", "content"}

	result, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}

	matches := make([]FTSMatch, 0, len(result.Hits))
	for _, hit := range result.Hits {
		m := FTSMatch{Rank: hit.Score}
		if v, ok := hit.Fields["content_id"].(string); ok {
			m.ContentID = v
		}
		if v, ok := hit.Fields["content_type"].(string); ok {
			m.ContentType = ContentType(v)
		}
		if v, ok := hit.Fields["file_path"].(string); ok {
			m.FilePath = v
		}
		if v, ok := hit.Fields["name"].(string); ok {
			m.Name = v
		}
		if v, ok := hit.Fields["content"].(string); ok {
			m.Content = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func queryStringOn(q, field string) query.Query {
	mq := bleve.NewMatchQuery(q)
	mq.SetField(field)
	return mq
}

// globToWildcard converts a "**/foo.go" style glob into a bleve wildcard
// pattern ("*foo.go"). Bleve wildcards only support "*" and "?".
func globToWildcard(pattern string) string {
	p := strings.ReplaceAll(pattern, "**/", "*")
	p = strings.ReplaceAll(p, "**", "*")
	return p
}
