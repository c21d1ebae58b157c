package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedWithProgressPreservesOrderAcrossBatches(t *testing.T) {
	provider := NewMockProvider()
	texts := make([]string, 250)
	for i := range texts {
		texts[i] = string(rune('a' + i%26))
	}

	progressCh := make(chan BatchProgress, 16)
	embeddings, err := EmbedWithProgress(context.Background(), provider, texts, EmbedModePassage, BatchPolicy{BatchSize: 32, Concurrency: 4}, progressCh)
	close(progressCh)
	require.NoError(t, err)
	require.Len(t, embeddings, len(texts))

	var lastBatch int
	for p := range progressCh {
		lastBatch++
		assert.LessOrEqual(t, p.ProcessedChunks, p.TotalChunks)
	}
	assert.Greater(t, lastBatch, 0)

	direct, err := provider.Embed(context.Background(), texts, EmbedModePassage)
	require.NoError(t, err)
	assert.Equal(t, direct, embeddings)
}

func TestEmbedWithProgressEmptyInput(t *testing.T) {
	provider := NewMockProvider()
	out, err := EmbedWithProgress(context.Background(), provider, nil, EmbedModeQuery, APIBatchPolicy(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEmbedWithProgressPropagatesBatchError(t *testing.T) {
	provider := NewMockProvider()
	provider.SetEmbedError(assert.AnError)

	_, err := EmbedWithProgress(context.Background(), provider, []string{"a", "b"}, EmbedModeQuery, BatchPolicy{BatchSize: 1, Concurrency: 2}, nil)
	assert.Error(t, err)
}
