package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedDeterministic(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	v1, err := e.Embed(context.Background(), "Japan visa requirements", PurposeQuery)
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "Japan visa requirements", PurposeQuery)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, StaticDimensions)
}

func TestStaticEmbedSymmetricAcrossPurpose(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	q, err := e.Embed(context.Background(), "travel insurance", PurposeQuery)
	require.NoError(t, err)
	d, err := e.Embed(context.Background(), "travel insurance", PurposeDocument)
	require.NoError(t, err)

	assert.Equal(t, q, d)
}

func TestStaticEmbedUnitLength(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	v, err := e.Embed(context.Background(), "customs regulations at the border", PurposeDocument)
	require.NoError(t, err)

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedSimilarTextsCloser(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	visa1, err := e.Embed(ctx, "Japan visa requirements for tourists", PurposeDocument)
	require.NoError(t, err)
	visa2, err := e.Embed(ctx, "visa requirements Japan tourist entry", PurposeQuery)
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "alcohol laws in Utah", PurposeDocument)
	require.NoError(t, err)

	assert.Greater(t, dot(visa1, visa2), dot(visa1, unrelated))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestStaticEmbedEmptyInputFails(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	_, err := e.Embed(context.Background(), "   ", PurposeQuery)
	require.Error(t, err)
}

func TestStaticEmbedBatchOrderAndAtomicity(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	texts := []string{"first text", "second text", "third text"}
	batch, err := e.EmbedBatch(ctx, texts, PurposeDocument)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(ctx, text, PurposeDocument)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}

	// One bad input fails the whole batch.
	_, err = e.EmbedBatch(ctx, []string{"fine", ""}, PurposeDocument)
	assert.Error(t, err)
}

func TestStaticEmbedderClosed(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	assert.False(t, e.Available(context.Background()))
	_, err := e.Embed(context.Background(), "text", PurposeQuery)
	assert.Error(t, err)
}
