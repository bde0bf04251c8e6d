package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wayfarer/internal/config"
)

func TestNewStaticProvider(t *testing.T) {
	e, err := New(context.Background(), config.EmbeddingsConfig{Provider: "static"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())

	// Factory always wraps in the cache.
	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)
}

func TestNewUnknownProviderFails(t *testing.T) {
	_, err := New(context.Background(), config.EmbeddingsConfig{Provider: "bert"})
	require.Error(t, err)
}

func TestNewAutoDetectFallsBackToStatic(t *testing.T) {
	e, err := New(context.Background(), config.EmbeddingsConfig{
		Provider:   "",
		OllamaHost: "http://127.0.0.1:1",
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
}
