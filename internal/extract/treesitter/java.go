package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewJava returns the default Java SymbolExtractor.
func NewJava() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(java.Language()),
		lang:     "java",
		walk:     walkJava,
	}
}

func walkJava(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "import_declaration":
			edges = append(edges, extract.RawEdge{TargetQualifiedName: nodeText(n, source), Type: "imports"})
		case "class_declaration":
			symbols = append(symbols, javaTyped(n, source, lines, "class"))
			if body := n.ChildByFieldName("body"); body != nil {
				className := nodeText(n.ChildByFieldName("name"), source)
				for _, m := range childrenOfKind(body, "method_declaration") {
					symbols = append(symbols, javaMethod(m, source, lines, className))
				}
			}
			return false
		case "interface_declaration":
			symbols = append(symbols, javaTyped(n, source, lines, "interface"))
		case "enum_declaration":
			symbols = append(symbols, javaTyped(n, source, lines, "enum"))
		}
		return true
	})

	return symbols, edges
}

func javaTyped(n *sitter.Node, source []byte, lines []string, symType string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	return extract.RawSymbol{
		Name: name, QualifiedName: name, Type: symType,
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
	}
}

func javaMethod(n *sitter.Node, source []byte, lines []string, className string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	qualified := name
	if className != "" {
		qualified = className + "." + name
	}
	params := nodeText(n.ChildByFieldName("parameters"), source)
	typeNode := n.ChildByFieldName("type")
	sig := qualified + params
	if typeNode != nil {
		sig = nodeText(typeNode, source) + " " + sig
	}
	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: "function",
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: sig,
	}
}
