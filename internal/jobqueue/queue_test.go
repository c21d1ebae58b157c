package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/storage"
)

func TestBoundedConcurrencyUnderFailure(t *testing.T) {
	q := New(Config{Concurrency: 2, MaxPending: 10, JobTimeout: time.Second})
	defer q.Shutdown()

	ids := make([]string, 4)
	for i := 0; i < 4; i++ {
		i := i
		var fn Fn
		if i == 1 {
			fn = func(ctx context.Context) (any, error) { return nil, errors.New("boom") }
		} else {
			fn = func(ctx context.Context) (any, error) {
				time.Sleep(5 * time.Millisecond)
				return i, nil
			}
		}
		id, err := q.Enqueue(fn, PriorityNormal, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	require.NoError(t, q.Drain(context.Background()))

	var fulfilled, rejected int
	for _, id := range ids {
		job, ok := q.GetJob(id)
		require.True(t, ok)
		switch job.Status {
		case StatusCompleted:
			fulfilled++
		case StatusFailed:
			rejected++
		}
	}
	assert.Equal(t, 3, fulfilled)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, q.Stats().Running)
}

func TestEnqueueRejectsWhenPendingQueueFull(t *testing.T) {
	q := New(Config{Concurrency: 1, MaxPending: 1, JobTimeout: time.Second})
	defer q.Shutdown()

	block := make(chan struct{})
	_, err := q.Enqueue(func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	}, PriorityNormal, nil)
	require.NoError(t, err)

	// give the dispatcher a moment to pick up the first job so pending drops
	// to 0 before we fill it back up.
	time.Sleep(20 * time.Millisecond)

	_, err = q.Enqueue(func(ctx context.Context) (any, error) { return nil, nil }, PriorityNormal, nil)
	require.NoError(t, err)

	_, err = q.Enqueue(func(ctx context.Context) (any, error) { return nil, nil }, PriorityNormal, nil)
	assert.ErrorIs(t, err, storage.ErrBackpressureFull)

	close(block)
}

func TestPriorityOrderingIsRespectedWithSingleWorker(t *testing.T) {
	q := New(Config{Concurrency: 1, MaxPending: 10, JobTimeout: time.Second})
	defer q.Shutdown()

	gate := make(chan struct{})
	var order []string
	done := make(chan struct{})

	_, err := q.Enqueue(func(ctx context.Context) (any, error) {
		<-gate
		return nil, nil
	}, PriorityNormal, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond) // ensure the blocker is already running

	_, _ = q.Enqueue(func(ctx context.Context) (any, error) {
		order = append(order, "low")
		return nil, nil
	}, PriorityLow, nil)
	_, _ = q.Enqueue(func(ctx context.Context) (any, error) {
		order = append(order, "critical")
		if len(order) == 2 {
			close(done)
		}
		return nil, nil
	}, PriorityCritical, nil)

	close(gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs never completed")
	}

	require.Len(t, order, 2)
	assert.Equal(t, "critical", order[0])
	assert.Equal(t, "low", order[1])
}

func TestEnqueueWithRetryReschedulesOnFailure(t *testing.T) {
	q := New(Config{Concurrency: 1, MaxPending: 10, JobTimeout: time.Second})
	defer q.Shutdown()

	var attempts int
	done := make(chan struct{})
	id, err := q.EnqueueWithRetry(func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		close(done)
		return nil, nil
	}, PriorityNormal, nil, 3)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never succeeded after retries")
	}

	job, ok := q.GetJob(id)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 3, attempts)
}

func TestJobTimeoutMarksFailed(t *testing.T) {
	q := New(Config{Concurrency: 1, MaxPending: 10, JobTimeout: 10 * time.Millisecond})
	defer q.Shutdown()

	id, err := q.Enqueue(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, PriorityNormal, nil)
	require.NoError(t, err)

	require.NoError(t, q.Drain(context.Background()))
	job, ok := q.GetJob(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, job.Status)
	assert.ErrorIs(t, job.Err, storage.ErrTimeoutExpired)
}

func TestIndexingQueueAssignsPriorityByKind(t *testing.T) {
	q := NewIndexingQueue(DefaultConfig())
	defer q.Shutdown()

	id, err := q.Submit(KindBatchWrite, func(ctx context.Context) (any, error) { return nil, nil }, nil)
	require.NoError(t, err)
	job, ok := q.GetJob(id)
	require.True(t, ok)
	assert.Equal(t, PriorityLow, job.Priority)
	assert.Equal(t, "batch-write", job.Metadata["kind"])
}
