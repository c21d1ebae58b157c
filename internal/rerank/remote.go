package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// APIKeyEnvVar is the environment variable probed for remote reranker
// credentials.
const APIKeyEnvVar = "CORTEX_RERANK_API_KEY"

// DefaultMaxCandidates is the remote reranker's candidate cap.
const DefaultMaxCandidates = 40

// RemoteReranker calls an external reranking service, falling back to BM25
// on API error or a missing credential (spec §4.3).
type RemoteReranker struct {
	Endpoint      string
	MaxCandidates int
	Client        *http.Client
	fallback      *BM25Reranker
}

// NewRemote builds a RemoteReranker against endpoint.
func NewRemote(endpoint string) *RemoteReranker {
	return &RemoteReranker{
		Endpoint:      endpoint,
		MaxCandidates: DefaultMaxCandidates,
		Client:        &http.Client{Timeout: 15 * time.Second},
		fallback:      NewBM25(),
	}
}

func (r *RemoteReranker) Name() string { return "remote" }

func available() (string, bool) {
	key := os.Getenv(APIKeyEnvVar)
	return key, key != ""
}

type remoteRequest struct {
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates"`
}

type remoteItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type remoteResponse struct {
	Results []remoteItem `json:"results"`
}

func (r *RemoteReranker) Rerank(ctx context.Context, query string, candidates []Candidate, limit int) ([]Ranked, error) {
	key, ok := available()
	if !ok {
		log.Printf("rerank: %s not set, falling back to bm25", APIKeyEnvVar)
		return r.fallback.Rerank(ctx, query, candidates, limit)
	}

	maxCandidates := r.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	head := candidates
	var tail []Candidate
	if len(candidates) > maxCandidates {
		head = candidates[:maxCandidates]
		tail = candidates[maxCandidates:]
	}

	ranked, err := r.call(ctx, key, query, head)
	if err != nil {
		log.Printf("rerank: remote reranker call failed, falling back to bm25: %v", err)
		return r.fallback.Rerank(ctx, query, candidates, limit)
	}

	for _, c := range tail {
		ranked = append(ranked, Ranked{Candidate: c, FinalScore: 0})
	}

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (r *RemoteReranker) call(ctx context.Context, apiKey, query string, candidates []Candidate) ([]Ranked, error) {
	body, err := json.Marshal(remoteRequest{Query: query, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("rerank: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank: remote service returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}

	byID := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ranked := make([]Ranked, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		c, ok := byID[item.ID]
		if !ok {
			continue
		}
		ranked = append(ranked, Ranked{Candidate: c, FinalScore: item.Score})
	}
	return ranked, nil
}
