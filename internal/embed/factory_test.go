package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderMock(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, 384, provider.Dimensions())
	assert.NoError(t, provider.Close())
}

func TestNewProviderDefaultsToHTTP(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{})
	require.NoError(t, err)
	_, ok := provider.(*HTTPProvider)
	assert.True(t, ok)
}

func TestNewProviderUnsupported(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(Config{Provider: "openai"})
	assert.Error(t, err)
}

func TestBatchPolicyForSelectsLocalForMock(t *testing.T) {
	assert.Equal(t, LocalBatchPolicy(), BatchPolicyFor("mock"))
	assert.Equal(t, APIBatchPolicy(), BatchPolicyFor("http"))
}
