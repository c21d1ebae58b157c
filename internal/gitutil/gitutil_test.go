package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "init", "-q", "-b", "main")
	run(t, dir, "config", "user.email", "test@example.com")
	run(t, dir, "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644))
	run(t, dir, "add", ".")
	run(t, dir, "commit", "-q", "-m", "init")
	return dir
}

func TestCurrentBranchReadsHEADDirectly(t *testing.T) {
	dir := initRepo(t)
	r := NewResolver()
	assert.Equal(t, "main", r.CurrentBranch(context.Background(), dir))
}

func TestCurrentBranchDefaultsOutsideGitRepo(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver()
	assert.Equal(t, DefaultBranch, r.CurrentBranch(context.Background(), dir))
}

func TestWorktreesIncludesNestedWorktreeAndExcludesSelf(t *testing.T) {
	dir := initRepo(t)
	wtPath := filepath.Join(dir, "wt-a")
	run(t, dir, "worktree", "add", "-q", "-b", "feature", wtPath)

	r := NewResolver()
	worktrees, err := r.Worktrees(context.Background(), dir)
	require.NoError(t, err)
	assert.Contains(t, worktrees, wtPath)
	assert.NotContains(t, worktrees, dir)
}

func TestExclusionGlobsProducesRelativeDoubleStarPattern(t *testing.T) {
	root := "/repo"
	globs := ExclusionGlobs(root, []string{"/repo/wt-a"})
	assert.Equal(t, []string{"wt-a/**"}, globs)
}

func TestExclusionGlobsExcludesDifferentRoot(t *testing.T) {
	root := "/repo"
	globs := ExclusionGlobs(root, []string{"/repo-extra/x"})
	assert.Empty(t, globs)
}

func TestIsStrictlyInsideRejectsSiblingWithSamePrefix(t *testing.T) {
	assert.True(t, isStrictlyInside("/repo", "/repo/wt-a"))
	assert.False(t, isStrictlyInside("/repo", "/repo-extra/x"))
	assert.False(t, isStrictlyInside("/repo", "/repo"))
}
