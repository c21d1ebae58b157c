// Package discovery walks a workspace collecting source files with
// recognized extensions, applying ignore globs and worktree exclusion
// (spec §4.1 "File enumeration"). Generalized from the teacher's
// internal/indexer/discovery.go FileDiscovery (gobwas/glob pattern
// matching, relative-path normalization, directory-suffix ignore trick)
// from a two-bucket code/docs split into a single language-tagged walk.
package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// LanguageExtensions maps a recognized file extension to its language tag,
// matching the Extractor contract's language(path) rules (spec §6).
var LanguageExtensions = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyw":   "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "typescript",
	".jsx":   "typescript",
	".mjs":   "typescript",
	".cjs":   "typescript",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".java":  "java",
	".c":     "c",
	".h":     "c",
}

// DefaultIgnorePatterns are always excluded regardless of caller
// configuration, matching the teacher's node_modules/.git/build-output set.
var DefaultIgnorePatterns = []string{
	"node_modules/**",
	".git/**",
	".opencode/**",
	"dist/**",
	"build/**",
	"vendor/**",
	"*.min.js",
}

// File is one discovered source file.
type File struct {
	Path     string // absolute path
	RelPath  string // slash-normalized, workspace-relative
	Language string
}

// Discovery walks a workspace root collecting File entries.
type Discovery struct {
	root     string
	ignore   []glob.Glob
	extToLang map[string]string
}

// New compiles ignorePatterns (merged with DefaultIgnorePatterns and any
// worktree-exclusion globs the caller derived via internal/gitutil) against
// root.
func New(root string, ignorePatterns []string) (*Discovery, error) {
	merged := append(append([]string(nil), DefaultIgnorePatterns...), ignorePatterns...)
	compiled := make([]glob.Glob, 0, len(merged))
	for _, pattern := range merged {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return &Discovery{root: root, ignore: compiled, extToLang: LanguageExtensions}, nil
}

// Walk recursively collects every file under root with a recognized
// extension, skipping ignored paths.
func (d *Discovery) Walk() ([]File, error) {
	var files []File
	err := filepath.Walk(d.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.shouldIgnore(relPath) {
			return nil
		}

		lang, ok := d.extToLang[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		files = append(files, File{Path: path, RelPath: relPath, Language: lang})
		return nil
	})
	return files, err
}

// ShouldIgnore reports whether relPath (slash-normalized, workspace-relative)
// matches one of the discovery's compiled ignore globs. Exposed so callers
// like internal/watch can reuse the same ignore rules without re-walking.
func (d *Discovery) ShouldIgnore(relPath string) bool {
	return d.shouldIgnore(relPath)
}

func (d *Discovery) shouldIgnore(relPath string) bool {
	if d.matchesAny(relPath) {
		return true
	}
	// A directory-level ignore pattern like "node_modules/**" should also
	// catch a bare directory path before descending (teacher's
	// shouldIgnore "/**"-suffix trick).
	return d.matchesAny(relPath + "/**")
}

func (d *Discovery) matchesAny(path string) bool {
	for _, g := range d.ignore {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// LanguageFor returns the recognized language for path's extension, or
// ("", false) when unrecognized, matching the Extractor contract's
// language(path) -> string | null (spec §6).
func LanguageFor(path string) (string, bool) {
	lang, ok := LanguageExtensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}
