package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cortexlabs/codeindex/internal/storage"
)

// HTTPProvider embeds by calling an already-running embedding server over
// HTTP. The server itself is an opaque external collaborator (spec §1
// Out of scope): this provider never starts or manages that process — it
// only speaks the wire protocol, adapted from the teacher's
// embed/client/local.go with the binary-management half removed.
type HTTPProvider struct {
	baseURL    string
	dimensions int
	client     *http.Client
}

// NewHTTPProvider returns a provider that calls an embedding server already
// listening at baseURL (e.g. "http://127.0.0.1:8121").
func NewHTTPProvider(baseURL string, dimensions int) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Mode  string   `json:"mode"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed converts texts into vectors via the server's /embed endpoint.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts, Mode: string(mode)})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request: %v", storage.ErrEmbedderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embedding server returned status %d", storage.ErrEmbedderFailure, resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode embedding response: %v", storage.ErrEmbedderFailure, err)
	}
	return out.Embeddings, nil
}

// Dimensions returns the vector width configured for this provider.
func (p *HTTPProvider) Dimensions() int { return p.dimensions }

// Close is a no-op: HTTPProvider never owns the server process.
func (p *HTTPProvider) Close() error { return nil }
