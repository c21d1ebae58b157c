package treesitter

import "github.com/cortexlabs/codeindex/internal/extract"

// DefaultRegistry builds the registry of every tree-sitter-backed extractor
// the teacher's grammar set supports. Go is deliberately absent — it is
// served by internal/extract/gosrc instead (see DESIGN.md).
func DefaultRegistry() *extract.Registry {
	return extract.NewRegistry(
		NewPython(),
		NewTypeScript(),
		NewRust(),
		NewRuby(),
		NewPHP(),
		NewJava(),
		NewC(),
	)
}
