// Package treesitter provides the default SymbolExtractor, backed by
// tree-sitter/go-tree-sitter and a per-language grammar, adapted from the
// teacher's internal/indexer/parsers package.
package treesitter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cortexlabs/codeindex/internal/extract"
	"github.com/cortexlabs/codeindex/internal/storage"
)

// base provides the parse/walk machinery shared by every language; each
// language file supplies only its node-kind-to-symbol mapping.
type base struct {
	language *sitter.Language
	lang     string
	walk     func(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge)
}

func (b *base) Language() string { return b.lang }

// Extract parses source with tree-sitter and delegates structural extraction
// to the language-specific walk function.
func (b *base) Extract(ctx context.Context, filePath string, source []byte) (*extract.Extraction, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(b.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: tree-sitter returned no tree", storage.ErrExtractorParse, filePath)
	}
	defer tree.Close()

	root := tree.RootNode()
	lines := strings.Split(string(source), "\n")

	symbols, edges := b.walk(root, source, lines)
	return &extract.Extraction{
		Language: b.lang,
		FilePath: filePath,
		Symbols:  symbols,
		Edges:    edges,
	}, nil
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

func lineRange(node *sitter.Node) (start, end int) {
	return int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1
}

func extractLines(lines []string, startLine, endLine int) string {
	if startLine < 1 || endLine < 1 || startLine > len(lines) {
		return ""
	}
	start := startLine - 1
	end := endLine
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// walkTree recursively visits node and its descendants; visitor returning
// false skips that node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

func childrenOfKind(node *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	if node == nil {
		return out
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func signatureUpToBrace(lines []string, startLine int) string {
	if startLine < 1 || startLine > len(lines) {
		return ""
	}
	var sb strings.Builder
	for i := startLine - 1; i < len(lines); i++ {
		sb.WriteString(lines[i])
		if idx := strings.Index(sb.String(), "{"); idx != -1 {
			return strings.TrimSpace(sb.String()[:idx])
		}
		sb.WriteString("\n")
	}
	return lines[startLine-1]
}
