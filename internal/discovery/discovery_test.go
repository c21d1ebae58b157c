package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("content"), 0o644))
}

func TestWalkCollectsRecognizedExtensionsOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go")
	writeFile(t, root, "README.md")
	writeFile(t, root, "script.py")

	d, err := New(root, nil)
	require.NoError(t, err)
	files, err := d.Walk()
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Contains(t, rels, "main.go")
	assert.Contains(t, rels, "script.py")
	assert.NotContains(t, rels, "README.md")
}

func TestWalkSkipsDefaultIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/pkg/index.js")
	writeFile(t, root, "src/app.ts")

	d, err := New(root, nil)
	require.NoError(t, err)
	files, err := d.Walk()
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Contains(t, rels, "src/app.ts")
	assert.NotContains(t, rels, "node_modules/pkg/index.js")
}

func TestWalkHonorsWorktreeExclusionGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wt-a/main.go")
	writeFile(t, root, "main.go")

	d, err := New(root, []string{"wt-a/**"})
	require.NoError(t, err)
	files, err := d.Walk()
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Contains(t, rels, "main.go")
	assert.NotContains(t, rels, "wt-a/main.go")
}

func TestLanguageForRecognizesLanguageFamilies(t *testing.T) {
	lang, ok := LanguageFor("pkg/foo.py")
	require.True(t, ok)
	assert.Equal(t, "python", lang)

	lang, ok = LanguageFor("web/app.tsx")
	require.True(t, ok)
	assert.Equal(t, "typescript", lang)

	_, ok = LanguageFor("image.png")
	assert.False(t, ok)
}
