// Package contentcache implements the search-result Content Cache of spec
// §4.5: an LRU-with-TTL cache keyed by canonicalized query objects, with
// pattern- and file-scoped invalidation for use when a watched file changes.
// Generalized from the teacher's internal/graph/searcher.go weight-based
// otter.Cache usage, adding the TTL and invalidation-index layers the
// teacher's plain file-line cache doesn't need.
package contentcache

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/maypok86/otter"
)

// Stats mirrors otter's stats plus the entry count, matching spec's `stats`
// operation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

type entry struct {
	value     any
	files     []string
	insertedAt time.Time
}

// Cache is an LRU-with-TTL cache over arbitrary JSON-serializable search
// results.
type Cache struct {
	cache otter.Cache[string, entry]
	ttl   time.Duration

	mu        sync.Mutex
	byFile    map[string]map[string]bool // file path -> set of cache keys touching it
	evictions int64
}

// Config tunes cache capacity and TTL.
type Config struct {
	Capacity int           // max entry count, weight-costed at 1 per entry
	TTL      time.Duration // default 5 minutes
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{Capacity: 1000, TTL: 5 * time.Minute}
}

// New builds a Cache per cfg.
func New(cfg Config) (*Cache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}

	c := &Cache{ttl: cfg.TTL, byFile: make(map[string]map[string]bool)}

	builder := otter.MustBuilder[string, entry](cfg.Capacity).
		CollectStats().
		WithTTL(cfg.TTL).
		DeletionListener(func(key string, value entry, cause otter.DeletionCause) {
			c.untrackLocked(key, value.files)
			if cause == otter.Eviction || cause == otter.Expired {
				c.mu.Lock()
				c.evictions++
				c.mu.Unlock()
			}
		})

	cache, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("contentcache: build cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// Get looks up key, refreshing its recency on a hit. Lazily-expired entries
// (past TTL) are treated as a miss.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		c.cache.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Has reports whether key is present and unexpired. It is a Get, so a
// present key counts as a hit and has its recency refreshed.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key, associating it with files (the source files
// whose content informed the result) for later invalidate_by_file calls.
func (c *Cache) Set(key string, value any, files ...string) {
	c.cache.Set(key, entry{value: value, files: files, insertedAt: time.Now()})
	c.mu.Lock()
	for _, f := range files {
		if c.byFile[f] == nil {
			c.byFile[f] = map[string]bool{}
		}
		c.byFile[f][key] = true
	}
	c.mu.Unlock()
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	c.cache.Delete(key)
}

// InvalidatePattern removes every key matching re.
func (c *Cache) InvalidatePattern(re *regexp.Regexp) int {
	// Collect first: otter does not guarantee delete-during-iterate safety.
	var toDelete []string
	c.cache.Range(func(key string, _ entry) bool {
		if re.MatchString(key) {
			toDelete = append(toDelete, key)
		}
		return true
	})
	for _, key := range toDelete {
		c.cache.Delete(key)
	}
	return len(toDelete)
}

// InvalidateByFile removes every cached entry that was derived from path.
func (c *Cache) InvalidateByFile(path string) int {
	c.mu.Lock()
	keys := c.byFile[path]
	c.mu.Unlock()

	n := 0
	for key := range keys {
		c.cache.Delete(key)
		n++
	}
	return n
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Clear()
	c.mu.Lock()
	c.byFile = make(map[string]map[string]bool)
	c.mu.Unlock()
}

// Stats reports cache hit/miss/eviction counters and current size.
func (c *Cache) Stats() Stats {
	s := c.cache.Stats()
	c.mu.Lock()
	evictions := c.evictions
	c.mu.Unlock()
	return Stats{
		Hits:      s.Hits(),
		Misses:    s.Misses(),
		Evictions: evictions,
		Size:      c.cache.Size(),
	}
}

// Close releases cache resources.
func (c *Cache) Close() {
	c.cache.Close()
}

func (c *Cache) untrackLocked(key string, files []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		if set, ok := c.byFile[f]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(c.byFile, f)
			}
		}
	}
}
