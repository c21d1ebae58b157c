// Package synccache implements the tiered change-detection cache of spec
// §4.2: a cheap mtime/size check, falling back to a content hash, persisted
// as a single JSON document alongside the workspace database.
package synccache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one cached fingerprint for a file.
type Entry struct {
	FilePath    string    `json:"file_path"`
	ContentHash string    `json:"content_hash"`
	Mtime       time.Time `json:"mtime"`
	Size        int64     `json:"size"`
}

// Stats exposes the observed tiered-check hit rate.
type Stats struct {
	CheapHits    int64 // mtime/size matched, no hash computed
	ExpensiveHits int64 // mtime changed but hash matched (drift)
	Misses       int64 // hash differed or file unseen
}

func (s Stats) HitRate() float64 {
	total := s.CheapHits + s.ExpensiveHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.CheapHits+s.ExpensiveHits) / float64(total)
}

// Hasher computes a file's canonical content hash. The Index Manager wires a
// git-object hasher when the workspace is a git repo, else a SHA-256 hasher
// (see internal/synccache/hash.go).
type Hasher interface {
	Hash(path string) (string, error)
}

// ChangeSet partitions a set of candidate paths relative to the cache.
type ChangeSet struct {
	Added     []string
	Modified  []string
	Removed   []string
	Unchanged []string
}

// Cache is the persistent path→fingerprint map described by spec §4.2.
type Cache struct {
	mu      sync.Mutex
	path    string
	hasher  Hasher
	entries map[string]Entry
	dirty   bool
	stats   Stats
}

// Load reads path (if it exists) into a new Cache, or starts empty.
func Load(path string, hasher Hasher) (*Cache, error) {
	c := &Cache{path: path, hasher: hasher, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read sync cache: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse sync cache: %w", err)
	}
	for _, e := range entries {
		c.entries[e.FilePath] = e
	}
	return c, nil
}

// Save writes the cache to disk iff dirty, matching the "intermediate writes
// may be lost" invariant of spec §4.2.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	entries := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create sync cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sync cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename sync cache: %w", err)
	}

	c.dirty = false
	return nil
}

// Stats returns a snapshot of observed hit-rate counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// FindChanged implements the tiered check and partition algorithm of spec
// §4.2. paths are absolute or workspace-relative file paths; the cache keys
// on whatever form the caller consistently passes.
func (c *Cache) FindChanged(paths []string) (*ChangeSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	present := make(map[string]bool, len(paths))
	result := &ChangeSet{}

	for _, p := range paths {
		present[p] = true

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		mtime := info.ModTime()
		size := info.Size()

		prior, ok := c.entries[p]
		if !ok {
			hash, err := c.hasher.Hash(p)
			if err != nil {
				return nil, fmt.Errorf("hash new file %s: %w", p, err)
			}
			c.entries[p] = Entry{FilePath: p, ContentHash: hash, Mtime: mtime, Size: size}
			c.dirty = true
			c.stats.Misses++
			result.Added = append(result.Added, p)
			continue
		}

		if prior.Mtime.Equal(mtime) && prior.Size == size {
			c.stats.CheapHits++
			result.Unchanged = append(result.Unchanged, p)
			continue
		}

		hash, err := c.hasher.Hash(p)
		if err != nil {
			return nil, fmt.Errorf("hash file %s: %w", p, err)
		}
		if hash == prior.ContentHash {
			// mtime drifted but content did not: unchanged, refresh cached
			// (mtime,size) so the cheap path hits next time.
			c.entries[p] = Entry{FilePath: p, ContentHash: hash, Mtime: mtime, Size: size}
			c.dirty = true
			c.stats.ExpensiveHits++
			result.Unchanged = append(result.Unchanged, p)
			continue
		}

		c.entries[p] = Entry{FilePath: p, ContentHash: hash, Mtime: mtime, Size: size}
		c.dirty = true
		c.stats.Misses++
		result.Modified = append(result.Modified, p)
	}

	for path := range c.entries {
		if !present[path] {
			result.Removed = append(result.Removed, path)
		}
	}
	for _, p := range result.Removed {
		if _, ok := c.entries[p]; ok {
			delete(c.entries, p)
			c.dirty = true
		}
	}

	return result, nil
}
