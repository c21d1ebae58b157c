package treesitter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythonExtractsClassAndMethods(t *testing.T) {
	src := []byte(`import os

class Greeter:
    def hello(self, name):
        return "hi " + name

def standalone():
    pass
`)
	ex, err := NewPython().Extract(context.Background(), "greet.py", src)
	require.NoError(t, err)

	var names []string
	for _, s := range ex.Symbols {
		names = append(names, s.QualifiedName)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "Greeter.hello")
	assert.Contains(t, names, "standalone")
	assert.NotEmpty(t, ex.Edges)
}

func TestTypeScriptExtractsInterfaceAndClass(t *testing.T) {
	src := []byte(`import { Foo } from "./foo";

interface Shape {
  area(): number;
}

class Circle implements Shape {
  area(): number {
    return 1;
  }
}
`)
	ex, err := NewTypeScript().Extract(context.Background(), "shape.ts", src)
	require.NoError(t, err)

	var names []string
	for _, s := range ex.Symbols {
		names = append(names, s.QualifiedName)
	}
	assert.Contains(t, names, "Shape")
	assert.Contains(t, names, "Circle")
	assert.Contains(t, names, "Circle.area")
}

func TestDefaultRegistryCoversTeacherLanguages(t *testing.T) {
	reg := DefaultRegistry()
	for _, lang := range []string{"python", "typescript", "rust", "ruby", "php", "java", "c"} {
		_, ok := reg.For(lang)
		assert.True(t, ok, "expected extractor registered for %s", lang)
	}
	_, ok := reg.For("go")
	assert.False(t, ok, "go is served by internal/extract/gosrc, not the registry")
}
