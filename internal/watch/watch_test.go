package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls int32
	done  chan struct{}
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{done: make(chan struct{}, 8)}
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	atomic.AddInt32(&c.calls, 1)
	select {
	case c.done <- struct{}{}:
	default:
	}
	return nil
}

func noIgnore(string) bool { return false }

func waitForRefresh(t *testing.T, c *countingRefresher) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}
}

func TestWatcherTriggersRefreshOnFileWrite(t *testing.T) {
	root := t.TempDir()
	refresher := newCountingRefresher()

	w, err := New(root, refresher, noIgnore, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	waitForRefresh(t, refresher)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&refresher.calls), int32(1))
}

func TestWatcherCoalescesBurstIntoSingleRefresh(t *testing.T) {
	root := t.TempDir()
	refresher := newCountingRefresher()

	w, err := New(root, refresher, noIgnore, 200*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("x"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	waitForRefresh(t, refresher)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refresher.calls))
}

func TestWatcherIgnoresExcludedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "node_modules"), 0o755))
	refresher := newCountingRefresher()

	ignore := func(relPath string) bool {
		return relPath == "node_modules" || filepath.Dir(relPath) == "node_modules"
	}

	w, err := New(root, refresher, ignore, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg.js"), []byte("x"), 0o644))

	select {
	case <-refresher.done:
		t.Fatal("refresh triggered for ignored path")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&refresher.calls))
}

func TestWatcherPicksUpNewlyCreatedDirectory(t *testing.T) {
	root := t.TempDir()
	refresher := newCountingRefresher()

	w, err := New(root, refresher, noIgnore, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.go"), []byte("package sub"), 0o644))
	waitForRefresh(t, refresher)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&refresher.calls), int32(1))
}

func TestStopIsIdempotentAndWaitsForLoopExit(t *testing.T) {
	root := t.TempDir()
	refresher := newCountingRefresher()

	w, err := New(root, refresher, noIgnore, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	w.Stop()
	w.Stop() // must not panic or block
}
