package jobqueue

import "context"

// Kind labels the stage of the indexing pipeline a job belongs to.
type Kind string

const (
	KindLSP              Kind = "lsp"
	KindSymbolExtraction Kind = "symbol-extraction"
	KindEdgeExtraction   Kind = "edge-extraction"
	KindBatchWrite       Kind = "batch-write"
)

var kindPriority = map[Kind]Priority{
	KindLSP:              PriorityHigh,
	KindSymbolExtraction: PriorityNormal,
	KindEdgeExtraction:   PriorityNormal,
	KindBatchWrite:       PriorityLow,
}

// IndexingQueue is the Queue wrapper the Index Manager schedules through: it
// assigns priorities by job kind instead of making callers pick one.
type IndexingQueue struct {
	*Queue
}

// NewIndexingQueue wraps a Queue with kind-aware scheduling.
func NewIndexingQueue(cfg Config) *IndexingQueue {
	return &IndexingQueue{Queue: New(cfg)}
}

// Submit schedules fn under kind's assigned priority.
func (q *IndexingQueue) Submit(kind Kind, fn Fn, metadata map[string]string) (string, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["kind"] = string(kind)
	return q.Enqueue(fn, kindPriority[kind], metadata)
}

// SubmitAndWait schedules fn under kind's assigned priority and blocks for
// its result.
func (q *IndexingQueue) SubmitAndWait(ctx context.Context, kind Kind, fn Fn) (any, error) {
	return q.EnqueueAndWait(ctx, fn, kindPriority[kind])
}
