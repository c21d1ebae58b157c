package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewRust returns the default Rust SymbolExtractor.
func NewRust() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(rust.Language()),
		lang:     "rust",
		walk:     walkRust,
	}
}

func walkRust(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "use_declaration":
			edges = append(edges, extract.RawEdge{TargetQualifiedName: nodeText(n, source), Type: "imports"})
		case "struct_item":
			symbols = append(symbols, rustTyped(n, source, lines, "struct"))
		case "enum_item":
			symbols = append(symbols, rustTyped(n, source, lines, "enum"))
		case "trait_item":
			symbols = append(symbols, rustTyped(n, source, lines, "trait"))
		case "impl_item":
			typeName := nodeText(n.ChildByFieldName("type"), source)
			if body := n.ChildByFieldName("body"); body != nil {
				for _, m := range childrenOfKind(body, "function_item") {
					symbols = append(symbols, rustFunction(m, source, lines, typeName))
				}
			}
			return false
		case "function_item":
			symbols = append(symbols, rustFunction(n, source, lines, ""))
		}
		return true
	})

	return symbols, edges
}

func rustTyped(n *sitter.Node, source []byte, lines []string, symType string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	return extract.RawSymbol{
		Name: name, QualifiedName: name, Type: symType,
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
	}
}

func rustFunction(n *sitter.Node, source []byte, lines []string, typeName string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	qualified := name
	if typeName != "" {
		qualified = typeName + "::" + name
	}
	params := nodeText(n.ChildByFieldName("parameters"), source)
	sig := qualified + params
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		sig += " " + nodeText(ret, source)
	}
	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: "function",
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: sig,
	}
}
