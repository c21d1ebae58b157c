// Package gitutil resolves the current git branch and enumerates nested
// worktrees so the file walker can exclude them (spec §4.1/§6, scenario 4).
// Grounded on the teacher's internal/git/operations.go exec.Command idiom
// and interface-for-mocking shape, generalized from branch-only queries to
// worktree discovery.
package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBranch is used outside a git repository or when all resolution
// strategies fail.
const DefaultBranch = "main"

// Resolver resolves branch and worktree information for a workspace root.
// An interface so callers (internal/indexmgr) can inject a fake in tests,
// matching the teacher's Operations interface shape.
type Resolver interface {
	CurrentBranch(ctx context.Context, workspaceRoot string) string
	Worktrees(ctx context.Context, workspaceRoot string) ([]string, error)
}

type execResolver struct{}

// NewResolver returns the default exec.Command-backed Resolver.
func NewResolver() Resolver { return &execResolver{} }

// CurrentBranch reads .git/HEAD directly when possible (spec §6: "ref:
// refs/heads/<name>"), falling back to `git rev-parse --abbrev-ref HEAD`,
// then to DefaultBranch.
func (execResolver) CurrentBranch(ctx context.Context, workspaceRoot string) string {
	if branch, ok := readHEAD(workspaceRoot); ok {
		return branch
	}

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = workspaceRoot
	out, err := cmd.Output()
	if err != nil {
		return DefaultBranch
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return DefaultBranch
	}
	return branch
}

func readHEAD(workspaceRoot string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(workspaceRoot, ".git", "HEAD"))
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(string(data))
	const prefix = "ref: refs/heads/"
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(line, prefix)
	if name == "" {
		return "", false
	}
	return name, true
}

// Worktrees returns the absolute paths of every worktree strictly inside
// workspaceRoot (excluding workspaceRoot itself), via `git worktree list
// --porcelain`. A path is "inside" only when the prefix match respects a
// path separator: "/repo-extra" is not inside "/repo".
func (execResolver) Worktrees(ctx context.Context, workspaceRoot string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "worktree", "list", "--porcelain")
	cmd.Dir = workspaceRoot
	out, err := cmd.Output()
	if err != nil {
		// Not a git repository, or git unavailable: no worktrees to exclude.
		return nil, nil
	}

	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, nil
	}
	root = filepath.Clean(root)

	var nested []string
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "worktree ") {
			continue
		}
		path := filepath.Clean(strings.TrimPrefix(line, "worktree "))
		if path == root {
			continue
		}
		if isStrictlyInside(root, path) {
			nested = append(nested, path)
		}
	}
	return nested, nil
}

// isStrictlyInside reports whether child is root plus at least one more
// path segment (a bare string-prefix match would wrongly include sibling
// directories like "/repo-extra" under "/repo").
func isStrictlyInside(root, child string) bool {
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// ExclusionGlobs converts nested worktree absolute paths into glob patterns
// relative to workspaceRoot, suitable for the file discovery ignore list
// (spec scenario 4: "/repo/wt-a" -> "wt-a/**").
func ExclusionGlobs(workspaceRoot string, worktrees []string) []string {
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		root = workspaceRoot
	}
	root = filepath.Clean(root)

	globs := make([]string, 0, len(worktrees))
	for _, wt := range worktrees {
		rel, err := filepath.Rel(root, wt)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		globs = append(globs, filepath.ToSlash(rel)+"/**")
	}
	return globs
}
