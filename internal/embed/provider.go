package embed

import "context"

// EmbedMode distinguishes a search-time query from an index-time passage, since
// some embedding models apply an asymmetric prefix/instruction to each side.
type EmbedMode string

const (
	// EmbedModeQuery embeds a user's search string (internal/search callers).
	EmbedModeQuery EmbedMode = "query"

	// EmbedModePassage embeds indexed content: a symbol body, a chunk, or a
	// whole file, at whichever granularity internal/indexmgr is persisting.
	EmbedModePassage EmbedMode = "passage"
)

// Provider is the contract internal/indexmgr and internal/search embed
// against; internal/config's "provider" field selects which implementation
// NewProvider constructs.
type Provider interface {
	// Embed returns one vector per entry in texts, in the same order, under
	// the given mode.
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)

	// Dimensions reports the fixed vector width this Provider produces;
	// internal/storage's vector table is sized to it at Open time.
	Dimensions() int

	// Close releases any resources (HTTP clients, model handles) held by the
	// provider.
	Close() error
}
