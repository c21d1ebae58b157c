package synccache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// GitObjectHasher computes git's blob object hash (the same value `git
// hash-object` would produce) without shelling out per file — only
// internal/gitutil invokes git itself, once, for branch/worktree discovery.
type GitObjectHasher struct{}

// Hash returns the hex-encoded SHA-1 of the git blob object for path:
// sha1("blob " + len(content) + "\x00" + content).
func (GitObjectHasher) Hash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file for git hash: %w", err)
	}
	header := fmt.Sprintf("blob %d\x00", len(content))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Hasher hashes raw file bytes, used outside a git repository.
type SHA256Hasher struct{}

// Hash returns the hex-encoded SHA-256 of path's contents.
func (SHA256Hasher) Hash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file for sha256 hash: %w", err)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// NewHasher picks GitObjectHasher when isGitRepo is true, else SHA256Hasher,
// per spec §4.2 ("git's object hash ... preferred, canonical ... else
// SHA-256").
func NewHasher(isGitRepo bool) Hasher {
	if isGitRepo {
		return GitObjectHasher{}
	}
	return SHA256Hasher{}
}
