package contentcache

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set("q1", "result-1", "file_a.go")
	v, ok := c.Get("q1")
	require.True(t, ok)
	assert.Equal(t, "result-1", v)
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestHasDoesNotReportExpiredEntries(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: 10 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	c.Set("q1", "v", "file.go")
	require.True(t, c.Has("q1"))
	time.Sleep(30 * time.Millisecond)
	assert.False(t, c.Has("q1"))
}

func TestInvalidateRemovesKey(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set("q1", "v", "file.go")
	c.Invalidate("q1")
	_, ok := c.Get("q1")
	assert.False(t, ok)
}

func TestInvalidatePatternMatchesSubsetOfKeys(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set("search:foo", "v1")
	c.Set("search:bar", "v2")
	c.Set("other:baz", "v3")

	n := c.InvalidatePattern(regexp.MustCompile(`^search:`))
	assert.Equal(t, 2, n)
	_, ok := c.Get("other:baz")
	assert.True(t, ok)
}

func TestInvalidateByFileRemovesOnlyAssociatedEntries(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set("q1", "v1", "a.go", "b.go")
	c.Set("q2", "v2", "b.go")
	c.Set("q3", "v3", "c.go")

	n := c.InvalidateByFile("b.go")
	assert.Equal(t, 2, n)
	_, ok := c.Get("q3")
	assert.True(t, ok)
	_, ok = c.Get("q1")
	assert.False(t, ok)
}

func TestClearEmptiesCacheAndFileIndex(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set("q1", "v1", "a.go")
	c.Clear()
	_, ok := c.Get("q1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.InvalidateByFile("a.go"))
}

func TestStatsReflectsHitsAndMisses(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set("q1", "v1")
	c.Get("q1")
	c.Get("missing")

	stats := c.Stats()
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
	assert.GreaterOrEqual(t, stats.Misses, int64(1))
}
