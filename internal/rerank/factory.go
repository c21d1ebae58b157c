package rerank

import "fmt"

// Kind names the selectable reranker, matching the `reranker` search option
// of spec §4.2.
type Kind string

const (
	KindSimple Kind = "simple"
	KindBM25   Kind = "bm25"
	KindRemote Kind = "remote"
)

// New builds a Reranker for kind. remoteEndpoint is only used for
// KindRemote.
func New(kind Kind, remoteEndpoint string) (Reranker, error) {
	switch kind {
	case KindSimple:
		return NewSimple(), nil
	case KindBM25, "":
		return NewBM25(), nil
	case KindRemote:
		return NewRemote(remoteEndpoint), nil
	default:
		return nil, fmt.Errorf("rerank: unsupported reranker kind %q", kind)
	}
}
