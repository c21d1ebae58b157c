package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// MockProvider stands in for a real embedding backend in tests and in
// internal/config's Provider: "mock" path: it derives a vector from each
// text's SHA-256 hash instead of calling out to a model, so identical
// symbol/chunk content always reproduces the same vector without a server.
// It also counts Embed calls, which lets embedding-reuse tests (e.g. the
// indexmgr rename scenario) assert that a reused content_hash skipped the
// embedder entirely rather than just checking the resulting vector.
type MockProvider struct {
	mu          sync.Mutex
	dimensions  int
	embedCalls  int
	closeCalled bool
	closeError  error
	embedError  error
}

// NewMockProvider constructs a MockProvider sized to the default embedding
// dimensionality (config.Default().Embedding.Dimensions).
func NewMockProvider() *MockProvider {
	return &MockProvider{
		dimensions: 384,
	}
}

// SetCloseError makes a subsequent Close() return err, for exercising
// internal/indexmgr's shutdown error handling.
func (p *MockProvider) SetCloseError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeError = err
}

// SetEmbedError makes a subsequent Embed() return err, for exercising
// internal/indexmgr's ErrEmbedderFailure non-fatal path.
func (p *MockProvider) SetEmbedError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedError = err
}

// newMockProvider returns a MockProvider typed as a Provider. factory.go's
// NewProvider does not call it: it builds the "mock" provider with
// NewMockProvider directly, and maps "" to the http provider.
func newMockProvider() Provider {
	return NewMockProvider()
}

// Embed hashes each text to a deterministic unit-ish vector in [-1, 1]^dims.
// Every call (even a batch of one) counts toward EmbedCallCount, regardless
// of mode — mode only affects a real model's instruction prefix, which this
// fake has no use for.
func (p *MockProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embedCalls++
	if p.embedError != nil {
		return nil, p.embedError
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		digest := sha256.Sum256([]byte(text))

		v := make([]float32, p.dimensions)
		for j := 0; j < p.dimensions; j++ {
			offset := (j * 4) % len(digest)
			bits := binary.BigEndian.Uint32(digest[offset : offset+4])
			v[j] = (float32(bits)/float32(1<<32))*2.0 - 1.0
		}
		vectors[i] = v
	}

	return vectors, nil
}

// Dimensions returns the fixed width of vectors this MockProvider produces.
func (p *MockProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimensions
}

// Close records that shutdown ran and returns any configured closeError.
func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalled = true
	return p.closeError
}

// IsClosed reports whether Close() has run.
func (p *MockProvider) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalled
}

// EmbedCallCount returns how many times Embed has been called, letting
// embedding-reuse tests assert that a content_hash hit skipped the embedder
// entirely rather than merely producing an identical vector.
func (p *MockProvider) EmbedCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedCalls
}
