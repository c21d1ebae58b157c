package embed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchProgress reports embedding progress for real-time feedback.
type BatchProgress struct {
	BatchIndex      int
	TotalBatches    int
	ProcessedChunks int
	TotalChunks     int
}

// BatchPolicy configures batch size and concurrency per §6: API-backed
// providers default to 128 texts/batch across 7 concurrent batches, local
// providers to 32/2 (a local model typically has far less headroom).
type BatchPolicy struct {
	BatchSize   int
	Concurrency int
}

// APIBatchPolicy is the default policy for remote/API-backed providers.
func APIBatchPolicy() BatchPolicy { return BatchPolicy{BatchSize: 128, Concurrency: 7} }

// LocalBatchPolicy is the default policy for local providers.
func LocalBatchPolicy() BatchPolicy { return BatchPolicy{BatchSize: 32, Concurrency: 2} }

// EmbedWithProgress embeds texts in batches, up to policy.Concurrency batches
// in flight at once, reporting progress as each batch completes. Results
// preserve input order regardless of which batch finishes first.
func EmbedWithProgress(
	ctx context.Context,
	provider Provider,
	texts []string,
	mode EmbedMode,
	policy BatchPolicy,
	progressCh chan<- BatchProgress,
) ([][]float32, error) {
	totalChunks := len(texts)
	if totalChunks == 0 {
		return [][]float32{}, nil
	}

	batchSize := policy.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	numBatches := (totalChunks + batchSize - 1) / batchSize
	results := make([][]float32, totalChunks)

	concurrency := policy.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var processedChunks int
	var completedBatches int

	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		batchIdx := batchIdx
		start := batchIdx * batchSize
		end := start + batchSize
		if end > totalChunks {
			end = totalChunks
		}
		batchTexts := texts[start:end]

		g.Go(func() error {
			batchEmbeddings, err := provider.Embed(gctx, batchTexts, mode)
			if err != nil {
				return fmt.Errorf("batch %d/%d failed: %w", batchIdx+1, numBatches, err)
			}
			for i, emb := range batchEmbeddings {
				results[start+i] = emb
			}
			if progressCh != nil {
				mu.Lock()
				processedChunks += len(batchTexts)
				completedBatches++
				progress := BatchProgress{
					BatchIndex:      completedBatches,
					TotalBatches:    numBatches,
					ProcessedChunks: processedChunks,
					TotalChunks:     totalChunks,
				}
				mu.Unlock()
				progressCh <- progress
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
