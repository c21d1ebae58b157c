// Package gosrc extracts symbols from Go source using the standard library's
// own parser — the one extraction language where no tree-sitter grammar
// appears anywhere in the retrieved corpus, so go/parser is the idiomatic
// choice rather than a gap-filling substitute (see DESIGN.md).
package gosrc

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/cortexlabs/codeindex/internal/extract"
	"github.com/cortexlabs/codeindex/internal/storage"
)

// Extractor is the Go SymbolExtractor.
type Extractor struct{}

// New returns the default Go SymbolExtractor.
func New() extract.SymbolExtractor { return Extractor{} }

func (Extractor) Language() string { return "go" }

func (Extractor) Extract(ctx context.Context, filePath string, source []byte) (*extract.Extraction, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrExtractorParse, filePath, err)
	}

	lines := strings.Split(string(source), "\n")
	pkgName := file.Name.Name

	var symbols []extract.RawSymbol
	var edges []extract.RawEdge

	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		edges = append(edges, extract.RawEdge{SourceQualifiedName: pkgName, TargetQualifiedName: path, Type: "imports"})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			symbols = append(symbols, funcSymbol(d, fset, lines, pkgName))
		case *ast.GenDecl:
			symbols = append(symbols, genDeclSymbols(d, fset, lines, pkgName)...)
		}
	}

	return &extract.Extraction{Language: "go", FilePath: filePath, Symbols: symbols, Edges: edges}, nil
}

func funcSymbol(d *ast.FuncDecl, fset *token.FileSet, lines []string, pkgName string) extract.RawSymbol {
	name := d.Name.Name
	qualified := pkgName + "." + name
	symType := "function"
	if d.Recv != nil && len(d.Recv.List) > 0 {
		recv := recvTypeName(d.Recv.List[0].Type)
		qualified = pkgName + "." + recv + "." + name
	}

	start := fset.Position(d.Pos()).Line
	end := fset.Position(d.End()).Line

	return extract.RawSymbol{
		Name: name, QualifiedName: qualified, Type: symType,
		StartLine: start, EndLine: end, Content: joinLines(lines, start, end),
		Signature: signatureLine(lines, start),
		Docstring: commentText(d.Doc),
	}
}

func recvTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return recvTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

func genDeclSymbols(d *ast.GenDecl, fset *token.FileSet, lines []string, pkgName string) []extract.RawSymbol {
	var out []extract.RawSymbol
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			symType := "type_alias"
			if _, ok := s.Type.(*ast.StructType); ok {
				symType = "class"
			}
			if _, ok := s.Type.(*ast.InterfaceType); ok {
				symType = "interface"
			}
			start := fset.Position(s.Pos()).Line
			end := fset.Position(s.End()).Line
			out = append(out, extract.RawSymbol{
				Name: s.Name.Name, QualifiedName: pkgName + "." + s.Name.Name, Type: symType,
				StartLine: start, EndLine: end, Content: joinLines(lines, start, end),
				Docstring: commentText(d.Doc),
			})
		case *ast.ValueSpec:
			symType := "variable"
			start := fset.Position(s.Pos()).Line
			end := fset.Position(s.End()).Line
			for _, name := range s.Names {
				if name.Name == "_" {
					continue
				}
				out = append(out, extract.RawSymbol{
					Name: name.Name, QualifiedName: pkgName + "." + name.Name, Type: symType,
					StartLine: start, EndLine: end, Content: joinLines(lines, start, end),
				})
			}
		}
	}
	return out
}

func joinLines(lines []string, start, end int) string {
	if start < 1 || end < start || start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

func signatureLine(lines []string, start int) string {
	if start < 1 || start > len(lines) {
		return ""
	}
	line := lines[start-1]
	if idx := strings.Index(line, "{"); idx != -1 {
		return strings.TrimSpace(line[:idx])
	}
	return strings.TrimSpace(line)
}

func commentText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}
