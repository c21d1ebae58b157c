package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewPython returns the default Python SymbolExtractor.
func NewPython() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(python.Language()),
		lang:     "python",
		walk:     walkPython,
	}
}

func walkPython(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "import_statement", "import_from_statement":
			if target := nodeText(n, source); target != "" {
				edges = append(edges, extract.RawEdge{SourceQualifiedName: "", TargetQualifiedName: target, Type: "imports"})
			}
		case "class_definition":
			name := nodeText(n.ChildByFieldName("name"), source)
			if name == "" {
				return true
			}
			start, end := lineRange(n)
			symbols = append(symbols, extract.RawSymbol{
				Name: name, QualifiedName: name, Type: "class",
				StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
			})
			if body := n.ChildByFieldName("body"); body != nil {
				for _, m := range childrenOfKind(body, "function_definition") {
					symbols = append(symbols, pythonFunction(m, source, lines, name))
				}
			}
			return false
		case "function_definition":
			if pythonIsTopLevel(n) {
				symbols = append(symbols, pythonFunction(n, source, lines, ""))
			}
		}
		return true
	})

	return symbols, edges
}

func pythonIsTopLevel(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "class_definition", "function_definition":
			return false
		case "module":
			return true
		}
	}
	return true
}

func pythonFunction(n *sitter.Node, source []byte, lines []string, className string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	qualified := name
	symType := "function"
	if className != "" {
		qualified = className + "." + name
		symType = "function" // methods are functions bound to a class qualified name
	}

	params := nodeText(n.ChildByFieldName("parameters"), source)
	if params == "" {
		params = "()"
	}
	sig := qualified + params
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		sig += " -> " + nodeText(ret, source)
	}

	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: symType,
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: sig,
	}
}
