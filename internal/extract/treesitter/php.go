package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewPHP returns the default PHP SymbolExtractor.
func NewPHP() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(php.LanguagePHP()),
		lang:     "php",
		walk:     walkPHP,
	}
}

func walkPHP(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "namespace_use_declaration":
			edges = append(edges, extract.RawEdge{TargetQualifiedName: nodeText(n, source), Type: "imports"})
		case "class_declaration":
			symbols = append(symbols, phpTyped(n, source, lines, "class"))
			if body := n.ChildByFieldName("body"); body != nil {
				className := nodeText(n.ChildByFieldName("name"), source)
				for _, m := range childrenOfKind(body, "method_declaration") {
					symbols = append(symbols, phpMethod(m, source, lines, className))
				}
			}
			return false
		case "interface_declaration":
			symbols = append(symbols, phpTyped(n, source, lines, "interface"))
		case "trait_declaration":
			symbols = append(symbols, phpTyped(n, source, lines, "trait"))
		case "function_definition":
			symbols = append(symbols, phpMethod(n, source, lines, ""))
		}
		return true
	})

	return symbols, edges
}

func phpTyped(n *sitter.Node, source []byte, lines []string, symType string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	return extract.RawSymbol{
		Name: name, QualifiedName: name, Type: symType,
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
	}
}

func phpMethod(n *sitter.Node, source []byte, lines []string, className string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	qualified := name
	if className != "" {
		qualified = className + "::" + name
	}
	params := nodeText(n.ChildByFieldName("parameters"), source)
	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: "function",
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: qualified + params,
	}
}
