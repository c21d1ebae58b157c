// Package jobqueue implements the priority-ordered async work queue of spec
// §4.6: bounded concurrency, per-job timeout, retry-with-same-priority, and
// a bounded completed-job map — generalized from the teacher's
// internal/indexer/processor.go sequential pipeline into a reusable
// concurrency primitive built on sourcegraph/conc.
package jobqueue

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/cortexlabs/codeindex/internal/storage"
)

// Priority is one of the four scheduling tiers. Lower numeric value runs
// first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

var priorityOrder = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}

// Status reports a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Fn is the unit of work a job runs.
type Fn func(ctx context.Context) (any, error)

// Job is a scheduled or completed unit of work.
type Job struct {
	ID             string
	Priority       Priority
	Metadata       map[string]string
	Status         Status
	Result         any
	Err            error
	Attempts       int
	RetryOnFailure bool
	MaxRetries     int
	CreatedAt      time.Time

	fn Fn
}

// Config tunes the queue's bounded resources, matching spec §4.6 defaults.
type Config struct {
	Concurrency  int           // default 4
	MaxPending   int           // default 1000
	JobTimeout   time.Duration // default 30s
	MaxCompleted int           // default 1000, bounded retention for get_job
}

// DefaultConfig returns spec §4.6's stated defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 4, MaxPending: 1000, JobTimeout: 30 * time.Second, MaxCompleted: 1000}
}

// Stats is a snapshot of queue occupancy.
type Stats struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// Queue is a bounded-concurrency, priority-ordered job scheduler.
type Queue struct {
	cfg Config

	mu       sync.Mutex
	byPrio   map[Priority]*list.List // each element is *Job, FIFO within priority
	pending  int
	running  int
	jobs     map[string]*Job // every job ever seen, for get_job and cancel
	completed *list.List     // ring of completed/failed job IDs, oldest at front

	paused bool
	wake   chan struct{}

	pool     *pool.ContextPool
	shutdown chan struct{}
	once     sync.Once
	drainWG  sync.WaitGroup
}

// New starts a Queue backed by a bounded conc pool and a dispatch goroutine.
func New(cfg Config) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 1000
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.MaxCompleted <= 0 {
		cfg.MaxCompleted = 1000
	}

	q := &Queue{
		cfg:       cfg,
		byPrio:    make(map[Priority]*list.List, 4),
		jobs:      make(map[string]*Job),
		completed: list.New(),
		wake:      make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
	}
	for _, p := range priorityOrder {
		q.byPrio[p] = list.New()
	}

	q.pool = pool.New().WithMaxGoroutines(cfg.Concurrency).WithContext(context.Background())
	q.drainWG.Add(1)
	go q.dispatchLoop()
	return q
}

// Enqueue schedules fn at priority with metadata and returns its job ID
// immediately. Returns storage.ErrBackpressureFull if the pending queue is
// already at MaxPending.
func (q *Queue) Enqueue(fn Fn, priority Priority, metadata map[string]string) (string, error) {
	return q.enqueue(fn, priority, metadata, false, 0)
}

func (q *Queue) enqueue(fn Fn, priority Priority, metadata map[string]string, retryOnFailure bool, maxRetries int) (string, error) {
	q.mu.Lock()
	if q.pending >= q.cfg.MaxPending {
		q.mu.Unlock()
		return "", fmt.Errorf("%w: %d jobs pending", storage.ErrBackpressureFull, q.pending)
	}

	job := &Job{
		ID: uuid.NewString(), Priority: priority, Metadata: metadata,
		Status: StatusPending, RetryOnFailure: retryOnFailure, MaxRetries: maxRetries,
		CreatedAt: time.Now(), fn: fn,
	}
	q.jobs[job.ID] = job
	q.byPrio[priority].PushBack(job)
	q.pending++
	q.mu.Unlock()

	q.notify()
	return job.ID, nil
}

// EnqueueAndWait schedules fn and blocks until it completes or ctx is
// cancelled.
func (q *Queue) EnqueueAndWait(ctx context.Context, fn Fn, priority Priority) (any, error) {
	done := make(chan struct{})
	var result any
	var jobErr error

	wrapped := func(ctx context.Context) (any, error) {
		defer close(done)
		r, err := fn(ctx)
		result, jobErr = r, err
		return r, err
	}

	id, err := q.Enqueue(wrapped, priority, nil)
	if err != nil {
		return nil, err
	}

	select {
	case <-done:
		return result, jobErr
	case <-ctx.Done():
		q.Cancel(id)
		return nil, ctx.Err()
	}
}

// EnqueueWithRetry schedules fn with retry-on-failure semantics: on failure,
// if attempts <= maxRetries, the job is re-enqueued at the same priority, so
// a job runs at most maxRetries+1 times.
func (q *Queue) EnqueueWithRetry(fn Fn, priority Priority, metadata map[string]string, maxRetries int) (string, error) {
	return q.enqueue(fn, priority, metadata, true, maxRetries)
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop pulls the highest-priority pending job and submits it to the
// bounded pool, looping until shutdown.
func (q *Queue) dispatchLoop() {
	defer q.drainWG.Done()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.shutdown:
			q.pool.Wait()
			return
		case <-q.wake:
		case <-ticker.C:
		}
		q.dispatchReady()
	}
}

func (q *Queue) dispatchReady() {
	for {
		q.mu.Lock()
		if q.paused || q.running >= q.cfg.Concurrency {
			q.mu.Unlock()
			return
		}
		job := q.popNextLocked()
		if job == nil {
			q.mu.Unlock()
			return
		}
		job.Status = StatusRunning
		job.Attempts++
		q.pending--
		q.running++
		q.mu.Unlock()

		q.pool.Go(func(ctx context.Context) error {
			q.run(ctx, job)
			return nil
		})
	}
}

func (q *Queue) popNextLocked() *Job {
	for _, p := range priorityOrder {
		l := q.byPrio[p]
		if front := l.Front(); front != nil {
			job := front.Value.(*Job)
			l.Remove(front)
			return job
		}
	}
	return nil
}

func (q *Queue) run(parent context.Context, job *Job) {
	ctx, cancel := context.WithTimeout(parent, q.cfg.JobTimeout)
	defer cancel()

	resultCh := make(chan struct {
		result any
		err    error
	}, 1)
	go func() {
		r, err := job.fn(ctx)
		resultCh <- struct {
			result any
			err    error
		}{r, err}
	}()

	var result any
	var jobErr error
	select {
	case out := <-resultCh:
		result, jobErr = out.result, out.err
	case <-ctx.Done():
		jobErr = fmt.Errorf("%w: job %s exceeded %s", storage.ErrTimeoutExpired, job.ID, q.cfg.JobTimeout)
	}

	q.mu.Lock()
	q.running--
	if jobErr != nil {
		job.Status = StatusFailed
		job.Err = jobErr
		if job.RetryOnFailure && job.Attempts <= job.MaxRetries {
			job.Status = StatusPending
			q.pending++
			q.byPrio[job.Priority].PushBack(job)
			q.mu.Unlock()
			q.notify()
			return
		}
	} else {
		job.Status = StatusCompleted
		job.Result = result
	}
	q.retainCompletedLocked(job)
	q.mu.Unlock()
	q.notify()
}

func (q *Queue) retainCompletedLocked(job *Job) {
	q.completed.PushBack(job.ID)
	for q.completed.Len() > q.cfg.MaxCompleted {
		front := q.completed.Front()
		q.completed.Remove(front)
		delete(q.jobs, front.Value.(string))
	}
}

// Cancel marks a pending job cancelled if it has not started running yet.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		return false
	}
	for _, p := range priorityOrder {
		l := q.byPrio[p]
		for e := l.Front(); e != nil; e = e.Next() {
			if e.Value.(*Job) == job {
				l.Remove(e)
				q.pending--
				job.Status = StatusCancelled
				q.retainCompletedLocked(job)
				return true
			}
		}
	}
	return false
}

// CancelAll cancels every currently pending job.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, p := range priorityOrder {
		l := q.byPrio[p]
		for e := l.Front(); e != nil; {
			next := e.Next()
			job := e.Value.(*Job)
			l.Remove(e)
			q.pending--
			job.Status = StatusCancelled
			q.retainCompletedLocked(job)
			n++
			e = next
		}
	}
	return n
}

// GetJob returns a copy of a job's current state, if known.
func (q *Queue) GetJob(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Stats returns a snapshot of current occupancy.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	var completed, failed int
	for e := q.completed.Front(); e != nil; e = e.Next() {
		if job, ok := q.jobs[e.Value.(string)]; ok {
			switch job.Status {
			case StatusCompleted:
				completed++
			case StatusFailed:
				failed++
			}
		}
	}
	return Stats{Pending: q.pending, Running: q.running, Completed: completed, Failed: failed}
}

// Pause stops new jobs from being dispatched; already-running jobs continue.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume re-enables dispatch after Pause.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.notify()
}

// Drain blocks until every pending and running job has finished.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		empty := q.pending == 0 && q.running == 0
		q.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Shutdown stops the dispatch loop and waits for in-flight jobs to finish.
func (q *Queue) Shutdown() {
	q.once.Do(func() {
		close(q.shutdown)
		q.drainWG.Wait()
	})
}
