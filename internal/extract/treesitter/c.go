package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewC returns the default C SymbolExtractor.
func NewC() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(c.Language()),
		lang:     "c",
		walk:     walkC,
	}
}

func walkC(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "preproc_include":
			edges = append(edges, extract.RawEdge{TargetQualifiedName: nodeText(n, source), Type: "imports"})
		case "struct_specifier", "union_specifier", "enum_specifier":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return true
			}
			name := nodeText(nameNode, source)
			symType := map[string]string{"struct_specifier": "struct", "union_specifier": "union", "enum_specifier": "enum"}[n.Kind()]
			start, end := lineRange(n)
			symbols = append(symbols, extract.RawSymbol{
				Name: name, QualifiedName: name, Type: symType,
				StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
			})
			return false
		case "function_definition":
			symbols = append(symbols, cFunction(n, source, lines))
		}
		return true
	})

	return symbols, edges
}

func cFunction(n *sitter.Node, source []byte, lines []string) extract.RawSymbol {
	declarator := n.ChildByFieldName("declarator")
	name := cDeclaratorName(declarator, source)
	start, end := lineRange(n)
	sig := signatureUpToBrace(lines, start)
	return extract.RawSymbol{
		Name: name, QualifiedName: name, Type: "function",
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: sig,
	}
}

func cDeclaratorName(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier":
		return nodeText(n, source)
	case "function_declarator", "pointer_declarator":
		return cDeclaratorName(n.ChildByFieldName("declarator"), source)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(uint(i))
		if c.Kind() == "identifier" {
			return nodeText(c, source)
		}
	}
	return ""
}
