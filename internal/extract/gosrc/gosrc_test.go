package gosrc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFunctionsTypesAndImports(t *testing.T) {
	src := []byte(`package widgets

import "fmt"

// Widget is a thing.
type Widget struct {
	Name string
}

func (w *Widget) String() string {
	return fmt.Sprintf("widget:%s", w.Name)
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}
`)
	ex, err := New().Extract(context.Background(), "widgets.go", src)
	require.NoError(t, err)

	var names []string
	for _, s := range ex.Symbols {
		names = append(names, s.QualifiedName)
	}
	assert.Contains(t, names, "widgets.Widget")
	assert.Contains(t, names, "widgets.Widget.String")
	assert.Contains(t, names, "widgets.NewWidget")

	require.Len(t, ex.Edges, 1)
	assert.Equal(t, "fmt", ex.Edges[0].TargetQualifiedName)
}

func TestUnderscoreBlankIdentifierSkipped(t *testing.T) {
	src := []byte(`package widgets

var _ = 1
var Count = 2
`)
	ex, err := New().Extract(context.Background(), "widgets.go", src)
	require.NoError(t, err)

	var names []string
	for _, s := range ex.Symbols {
		names = append(names, s.Name)
	}
	assert.NotContains(t, names, "_")
	assert.Contains(t, names, "Count")
}
