package embed

import "fmt"

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "http" (an already-running embedding server), "mock" (for
	// tests), or "" which defaults to "http".
	Provider string

	// Endpoint is the embedding server's base URL (for the http provider).
	Endpoint string

	// Dimensions is the vector width the provider produces.
	Dimensions int

	// Model identifies the embedding model in use; persisted to meta and
	// compared on every startup by rotation.go.
	Model string
}

// NewProvider builds a Provider from Config. The model-rotation machinery
// (rotation.go) runs independently of which concrete Provider this returns.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "http", "":
		endpoint := config.Endpoint
		if endpoint == "" {
			endpoint = "http://127.0.0.1:8121"
		}
		dims := config.Dimensions
		if dims == 0 {
			dims = 384
		}
		return NewHTTPProvider(endpoint, dims), nil

	case "mock":
		return NewMockProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: http, mock)", config.Provider)
	}
}

// BatchPolicyFor returns the default batch/concurrency policy for a provider
// kind per spec §6.
func BatchPolicyFor(providerKind string) BatchPolicy {
	if providerKind == "mock" {
		return LocalBatchPolicy()
	}
	return APIBatchPolicy()
}
