// Package rewrite implements the pure query rewriter of spec §4.4: synonym
// expansion, file-pattern/language extraction, and the exclusion-list rule
// that keeps bare-text queries from being misread as path filters.
package rewrite

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// MaxSynonymsPerTerm bounds how many synonyms are OR-grouped per term.
const MaxSynonymsPerTerm = 3

// Result is the rewrite() output contract.
type Result struct {
	Original     string   `json:"original"`
	Expanded     string   `json:"expanded"`
	FilePatterns []string `json:"file_patterns"`
	Languages    []string `json:"languages"`
	Terms        []string `json:"terms"`
	Expansions   map[string][]string `json:"expansions"`
}

var synonyms = map[string][]string{
	"create":  {"add", "new", "make"},
	"add":     {"create", "insert", "append"},
	"delete":  {"remove", "destroy", "drop"},
	"remove":  {"delete", "drop", "discard"},
	"update":  {"modify", "change", "edit"},
	"get":     {"fetch", "retrieve", "read"},
	"fetch":   {"get", "retrieve", "load"},
	"list":    {"enumerate", "index", "all"},
	"user":    {"account", "member", "person"},
	"account": {"user", "profile"},
	"config":  {"settings", "options", "configuration"},
	"error":   {"exception", "failure", "fault"},
	"auth":    {"authentication", "login", "authorization"},
	"queue":   {"buffer", "backlog"},
	"cache":   {"store", "buffer"},
	"struct":  {"type", "class", "model"},
	"func":    {"function", "method"},
	"test":    {"spec", "check"},
}

// keywordGlobs maps a bare keyword to a file glob. Extraction only fires on
// a keyword hit, never on arbitrary terms.
var keywordGlobs = map[string]string{
	"test":       "**/*_test.go",
	"tests":      "**/*_test.*",
	"dockerfile": "**/Dockerfile",
	"makefile":   "**/Makefile",
	"config":     "**/*.{yaml,yml,json,toml}",
	"readme":     "**/README*",
	"migration":  "**/migrations/*",
	"migrations": "**/migrations/*",
}

// exclusionList holds keywords whose glob is suppressed unless the query
// also carries explicit path syntax elsewhere (contract (d)).
var exclusionList = map[string]bool{
	"config": true,
	"test":   true,
	"tests":  true,
}

var languageKeywords = map[string]string{
	"golang":     "go",
	"go":         "go",
	"python":     "python",
	"py":         "python",
	"typescript": "typescript",
	"ts":         "typescript",
	"javascript": "javascript",
	"js":         "javascript",
	"rust":       "rust",
	"ruby":       "ruby",
	"java":       "java",
	"php":        "php",
	"c++":        "cpp",
	"cpp":        "cpp",
}

var explicitFilenameRe = regexp.MustCompile(`\b[\w-]+\.(go|ts|tsx|js|jsx|py|rb|rs|java|php|c|h|cpp|hpp|md|json|yaml|yml|toml)\b`)
var pathSyntaxRe = regexp.MustCompile(`[\\/]|\.[A-Za-z0-9]{1,6}\b`)
var tokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Rewrite implements rewrite(query). It never errors: an empty or
// whitespace-only query rewrites to itself with no extraction.
func Rewrite(query string) Result {
	res := Result{
		Original:   query,
		Expanded:   query,
		Expansions: map[string][]string{},
	}

	lower := strings.ToLower(query)
	hasPathSyntax := pathSyntaxRe.MatchString(query)

	terms := dedupe(tokenRe.FindAllString(lower, -1))
	res.Terms = filterShort(terms, 3)

	patterns := map[string]bool{}
	for _, m := range explicitFilenameRe.FindAllString(query, -1) {
		patterns["**/"+m] = true
	}
	for _, term := range terms {
		if glob, ok := keywordGlobs[term]; ok {
			if exclusionList[term] && !hasPathSyntax {
				continue
			}
			patterns[glob] = true
		}
		if lang, ok := languageKeywords[term]; ok {
			res.Languages = appendUnique(res.Languages, lang)
		}
	}
	res.FilePatterns = sortedKeys(patterns)

	expandedTerms := make([]string, 0, len(res.Terms))
	changed := false
	for _, term := range res.Terms {
		syns := synonyms[term]
		if len(syns) == 0 {
			expandedTerms = append(expandedTerms, term)
			continue
		}
		if len(syns) > MaxSynonymsPerTerm {
			syns = syns[:MaxSynonymsPerTerm]
		}
		group := append([]string{term}, syns...)
		res.Expansions[term] = syns
		expandedTerms = append(expandedTerms, "("+strings.Join(group, " OR ")+")")
		changed = true
	}

	if changed {
		res.Expanded = replaceTermsInOrder(query, res.Terms, expandedTerms)
	}

	return res
}

// CanonicalKey returns a canonical JSON encoding of a Result suitable as a
// cache key, matching spec §4.5's canonicalized-object rule.
func CanonicalKey(r Result) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func filterShort(in []string, minLen int) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if len(s) >= minLen {
			out = append(out, s)
		}
	}
	return out
}

func appendUnique(in []string, s string) []string {
	for _, v := range in {
		if v == s {
			return in
		}
	}
	return append(in, s)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// replaceTermsInOrder does a case-insensitive whole-word substitution of
// each term (in first-occurrence order) with its expansion group, leaving
// everything else in the original query untouched.
func replaceTermsInOrder(query string, terms, expansions []string) string {
	out := query
	for i, term := range terms {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		replaced := false
		out = re.ReplaceAllStringFunc(out, func(match string) string {
			if replaced {
				return match
			}
			replaced = true
			return expansions[i]
		})
	}
	return out
}
