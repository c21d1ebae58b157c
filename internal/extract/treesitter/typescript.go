package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/cortexlabs/codeindex/internal/extract"
)

// NewTypeScript returns the default TypeScript/JavaScript SymbolExtractor.
func NewTypeScript() extract.SymbolExtractor {
	return &base{
		language: sitter.NewLanguage(typescript.LanguageTypescript()),
		lang:     "typescript",
		walk:     walkTypeScript,
	}
}

func walkTypeScript(root *sitter.Node, source []byte, lines []string) ([]extract.RawSymbol, []extract.RawEdge) {
	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "import_statement":
			if src := n.ChildByFieldName("source"); src != nil {
				edges = append(edges, extract.RawEdge{TargetQualifiedName: nodeText(src, source), Type: "imports"})
			}
		case "class_declaration":
			symbols = append(symbols, tsTyped(n, source, lines, "class"))
			if body := n.ChildByFieldName("body"); body != nil {
				className := nodeText(n.ChildByFieldName("name"), source)
				for _, m := range childrenOfKind(body, "method_definition") {
					symbols = append(symbols, tsMethod(m, source, lines, className))
				}
			}
			return false
		case "interface_declaration":
			symbols = append(symbols, tsTyped(n, source, lines, "interface"))
		case "type_alias_declaration":
			symbols = append(symbols, tsTyped(n, source, lines, "type_alias"))
		case "function_declaration":
			symbols = append(symbols, tsMethod(n, source, lines, ""))
		}
		return true
	})

	return symbols, edges
}

func tsTyped(n *sitter.Node, source []byte, lines []string, symType string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	return extract.RawSymbol{
		Name: name, QualifiedName: name, Type: symType,
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
	}
}

func tsMethod(n *sitter.Node, source []byte, lines []string, className string) extract.RawSymbol {
	name := nodeText(n.ChildByFieldName("name"), source)
	start, end := lineRange(n)
	qualified := name
	if className != "" {
		qualified = className + "." + name
	}
	params := nodeText(n.ChildByFieldName("parameters"), source)
	sig := qualified + params
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		sig += ": " + nodeText(ret, source)
	}
	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: "function",
		StartLine: start, EndLine: end, Content: extractLines(lines, start, end),
		Signature: sig,
	}
}
