package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls.
type countingEmbedder struct {
	*StaticEmbedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	c.calls.Add(1)
	return c.StaticEmbedder.Embed(ctx, text, purpose)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	c.calls.Add(int64(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts, purpose)
}

func TestCachedEmbedderHitsCache(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	v1, err := cached.Embed(ctx, "repeat me", PurposeQuery)
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "repeat me", PurposeQuery)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedEmbedderKeysOnPurpose(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, err := cached.Embed(ctx, "same text", PurposeQuery)
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "same text", PurposeDocument)
	require.NoError(t, err)

	// Different purposes are cached separately even when the static
	// backend returns the same vector.
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedderBatchPartialHits(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, err := cached.Embed(ctx, "cached already", PurposeDocument)
	require.NoError(t, err)
	require.Equal(t, int64(1), inner.calls.Load())

	batch, err := cached.EmbedBatch(ctx,
		[]string{"cached already", "new one"}, PurposeDocument)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	// Only the uncached text reached the inner embedder.
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedderPassthrough(t *testing.T) {
	inner := NewStaticEmbedder()
	cached := NewCachedEmbedder(inner, 0)

	assert.Equal(t, StaticDimensions, cached.Dimensions())
	assert.Equal(t, "static", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())

	require.NoError(t, cached.Close())
	assert.False(t, cached.Available(context.Background()))
}
