package storage

import "errors"

// Error kinds from spec §7. Locally recoverable kinds (FileIO,
// ExtractorParse, EmbedderFailure, RemoteRerankerFailure) never cross a
// component boundary as a propagated error — they become FileRecord status
// entries or are swallowed at the Phase B boundary. The remaining kinds are
// catastrophic: they propagate to the caller and to the Lifecycle Manager.
var (
	ErrFileIO               = errors.New("storage: file unreadable")
	ErrExtractorParse       = errors.New("storage: extractor rejected file")
	ErrStorageWrite         = errors.New("storage: write failed")
	ErrEmbedderFailure      = errors.New("storage: embedding call failed")
	ErrRemoteRerankerFailure = errors.New("storage: remote reranker call failed")
	ErrInvalidTransition    = errors.New("storage: invalid lifecycle transition")
	ErrBackpressureFull     = errors.New("storage: job queue at capacity")
	ErrTimeoutExpired       = errors.New("storage: job exceeded timeout")
)
