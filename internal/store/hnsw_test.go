package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

func newTestIndex(t *testing.T) *HNSWIndex {
	t.Helper()
	idx, err := NewHNSWIndex(DefaultVectorIndexConfig(3))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedTestIndex(t *testing.T, idx *HNSWIndex) {
	t.Helper()
	err := idx.Upsert(context.Background(),
		[]string{"doc-japan", "doc-uae", "doc-usa"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
		[]DocMeta{
			{Country: "Japan", Category: CategoryVisa},
			{Country: "UAE", Category: CategoryCulture},
			{Country: "USA", Category: CategoryLaw},
		})
	require.NoError(t, err)
}

func TestHNSWSearchOrdersBySimilarity(t *testing.T) {
	idx := newTestIndex(t)
	seedTestIndex(t, idx)

	results, err := idx.Search(context.Background(), []float32{1, 0.1, 0}, 3, Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "doc-japan", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	// Cosine similarity stays within [-1, 1].
	for _, r := range results {
		assert.LessOrEqual(t, r.Score, float32(1.0001))
		assert.GreaterOrEqual(t, r.Score, float32(-1.0001))
	}
}

func TestHNSWSearchFilters(t *testing.T) {
	idx := newTestIndex(t)
	seedTestIndex(t, idx)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3,
		Filters{Country: "UAE"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-uae", results[0].ID)

	results, err = idx.Search(context.Background(), []float32{1, 0, 0}, 3,
		Filters{Country: "Japan", Category: CategoryCulture})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	seedTestIndex(t, idx)

	_, err := idx.Search(context.Background(), []float32{1, 0}, 3, Filters{})
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeDimensionMismatch, wferrors.CodeOf(err))

	err = idx.Upsert(context.Background(), []string{"bad"},
		[][]float32{{1, 2, 3, 4}}, []DocMeta{{}})
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeDimensionMismatch, wferrors.CodeOf(err))
}

func TestHNSWEmptyIndexReturnsNoResults(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWUpsertReplacesExisting(t *testing.T) {
	idx := newTestIndex(t)
	seedTestIndex(t, idx)
	require.Equal(t, 3, idx.Count())

	// Move doc-japan to a new position; count stays the same.
	err := idx.Upsert(context.Background(), []string{"doc-japan"},
		[][]float32{{0, 0, 1}}, []DocMeta{{Country: "Japan", Category: CategoryVisa}})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(context.Background(), []float32{0, 0, 1}, 1, Filters{Country: "Japan"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-japan", results[0].ID)
}

func TestHNSWDelete(t *testing.T) {
	idx := newTestIndex(t)
	seedTestIndex(t, idx)

	require.NoError(t, idx.Delete(context.Background(), []string{"doc-japan"}))
	assert.Equal(t, 2, idx.Count())

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3, Filters{})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "doc-japan", r.ID)
	}
}

func TestHNSWSaveLoad(t *testing.T) {
	idx := newTestIndex(t)
	seedTestIndex(t, idx)

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, idx.Save(path))

	loaded, err := NewHNSWIndex(DefaultVectorIndexConfig(3))
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 3, loaded.Count())
	results, err := loaded.Search(context.Background(), []float32{0, 1, 0}, 1, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-uae", results[0].ID)
}

func TestHNSWClosedIndexFails(t *testing.T) {
	idx, err := NewHNSWIndex(DefaultVectorIndexConfig(3))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1, Filters{})
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeStoreClosed, wferrors.CodeOf(err))
}

func TestNewHNSWIndexRejectsBadDimensions(t *testing.T) {
	_, err := NewHNSWIndex(VectorIndexConfig{Dimensions: 0})
	require.Error(t, err)
}
