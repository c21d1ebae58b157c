package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewRuby returns the default Ruby SymbolExtractor.
func NewRuby() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(ruby.Language()),
		lang:     "ruby",
		walk:     walkRuby,
	}
}

func walkRuby(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "call":
			method := n.ChildByFieldName("method")
			if method != nil && method.Kind() == "identifier" {
				if name := nodeText(method, source); name == "require" || name == "require_relative" {
					edges = append(edges, extract.RawEdge{TargetQualifiedName: nodeText(n, source), Type: "imports"})
				}
			}
		case "class", "module":
			name := nodeText(n.ChildByFieldName("name"), source)
			if name == "" {
				return true
			}
			symType := "class"
			if n.Kind() == "module" {
				symType = "module"
			}
			start, end := lineRange(n)
			symbols = append(symbols, extract.RawSymbol{
				Name: name, QualifiedName: name, Type: symType,
				StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
			})
			if body := n.ChildByFieldName("body"); body != nil {
				for _, m := range childrenOfKind(body, "method") {
					symbols = append(symbols, rubyMethod(m, source, lines, name))
				}
			}
			return false
		case "method":
			if rubyIsTopLevel(n) {
				symbols = append(symbols, rubyMethod(n, source, lines, ""))
			}
		}
		return true
	})

	return symbols, edges
}

func rubyIsTopLevel(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "class" || p.Kind() == "module" {
			return false
		}
	}
	return true
}

func rubyMethod(n *sitter.Node, source []byte, lines []string, className string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	qualified := name
	if className != "" {
		qualified = className + "#" + name
	}
	params := nodeText(n.ChildByFieldName("parameters"), source)
	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: "function",
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: qualified + params,
	}
}
