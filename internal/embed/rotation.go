package embed

import (
	"fmt"

	"github.com/cortexlabs/codeindex/internal/storage"
)

// CheckRotation compares the embedding model ID recorded in meta against the
// active provider's model ID. A mismatch means every vector row was computed
// by a different model and must be wiped — symbols and chunks survive, only
// js_vectors is invalidated (§4.1 "model rotation"). The caller is expected
// to re-embed every surviving chunk/symbol afterward.
func CheckRotation(store *storage.Store, activeModelID string) (rotated bool, err error) {
	recorded, ok, err := store.Meta.Get(storage.MetaEmbeddingModelID)
	if err != nil {
		return false, fmt.Errorf("read recorded embedding model id: %w", err)
	}

	if !ok {
		return false, store.Meta.Set(storage.MetaEmbeddingModelID, activeModelID)
	}
	if recorded == activeModelID {
		return false, nil
	}

	if err := store.Vectors.Clear(); err != nil {
		return false, fmt.Errorf("clear vectors on model rotation: %w", err)
	}
	if err := store.Meta.Set(storage.MetaEmbeddingModelID, activeModelID); err != nil {
		return false, fmt.Errorf("record new embedding model id: %w", err)
	}
	return true, nil
}
