package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wayfarer/internal/store"
)

func mustRanker(t *testing.T, alpha float64) *FusionRanker {
	t.Helper()
	f, err := NewFusionRanker(alpha, DefaultRRFConstant)
	require.NoError(t, err)
	return f
}

func semResults(ids ...string) []*store.VectorResult {
	out := make([]*store.VectorResult, len(ids))
	for i, id := range ids {
		out[i] = &store.VectorResult{ID: id, Score: float32(1.0) - float32(i)*0.1}
	}
	return out
}

func lexResults(ids ...string) []*store.LexicalResult {
	out := make([]*store.LexicalResult, len(ids))
	for i, id := range ids {
		out[i] = &store.LexicalResult{ID: id, Score: 1.0 - float64(i)*0.1}
	}
	return out
}

func TestNewFusionRankerValidatesAlpha(t *testing.T) {
	for _, alpha := range []float64{0, 0.5, 1} {
		_, err := NewFusionRanker(alpha, 60)
		assert.NoError(t, err, "alpha %v", alpha)
	}
	for _, alpha := range []float64{-0.01, 1.01, 2} {
		_, err := NewFusionRanker(alpha, 60)
		assert.Error(t, err, "alpha %v", alpha)
	}
}

func TestFuseEmptyInputsYieldEmptyOutput(t *testing.T) {
	f := mustRanker(t, 0.7)
	out := f.Fuse(nil, nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFuseStrictOrdering(t *testing.T) {
	f := mustRanker(t, 0.7)

	out := f.Fuse(
		semResults("a", "b", "c", "d"),
		lexResults("b", "e", "a"),
	)

	require.NotEmpty(t, out)
	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1], out[i]
		if prev.FusedScore == cur.FusedScore {
			// Ties must be fully resolved by rank then id.
			if prev.bestRank() == cur.bestRank() {
				assert.Less(t, prev.ID, cur.ID)
			} else {
				assert.Less(t, prev.bestRank(), cur.bestRank())
			}
		} else {
			assert.Greater(t, prev.FusedScore, cur.FusedScore)
		}
	}
}

func TestFuseIsRankOnly(t *testing.T) {
	f := mustRanker(t, 0.6)

	sem := semResults("x", "y", "z")
	lex := lexResults("y", "x")
	baseline := f.Fuse(sem, lex)

	// Replace the raw scores with any values preserving the same order.
	semAlt := []*store.VectorResult{
		{ID: "x", Score: 0.42}, {ID: "y", Score: 0.41}, {ID: "z", Score: 0.07},
	}
	lexAlt := []*store.LexicalResult{
		{ID: "y", Score: 0.99}, {ID: "x", Score: 0.01},
	}
	altered := f.Fuse(semAlt, lexAlt)

	require.Len(t, altered, len(baseline))
	for i := range baseline {
		assert.Equal(t, baseline[i].ID, altered[i].ID)
		assert.Equal(t, baseline[i].FusedScore, altered[i].FusedScore)
	}
}

func TestFuseReinforcement(t *testing.T) {
	f := mustRanker(t, 0.7)

	// "solo" appears at rank 1 in the semantic list only.
	soloOnly := f.Fuse(semResults("solo"), nil)
	require.Len(t, soloOnly, 1)

	// The same candidate at rank 1 in both lists must strictly beat
	// its single-list score.
	both := f.Fuse(semResults("solo"), lexResults("solo"))
	require.Len(t, both, 1)
	assert.Greater(t, both[0].FusedScore, soloOnly[0].FusedScore)
}

func TestFuseJapanVisaScenario(t *testing.T) {
	f := mustRanker(t, 0.7)

	sem := []*store.VectorResult{
		{ID: "japan-doc", Score: 0.91},
		{ID: "uae-doc", Score: 0.55},
		{ID: "usa-doc", Score: 0.40},
	}
	// Only the Japan document matches "japan" and "visa" lexically.
	lex := []*store.LexicalResult{
		{ID: "japan-doc", Score: 0.66},
	}

	out := f.Fuse(sem, lex)
	require.Len(t, out, 3)
	assert.Equal(t, "japan-doc", out[0].ID)
	assert.Greater(t, out[0].FusedScore, out[1].FusedScore)
	assert.Equal(t, 1, out[0].SemRank)
	assert.Equal(t, 1, out[0].LexRank)
}

func TestFusePreservesOriginalScores(t *testing.T) {
	f := mustRanker(t, 0.5)

	out := f.Fuse(
		[]*store.VectorResult{{ID: "a", Score: 0.83}},
		[]*store.LexicalResult{{ID: "a", Score: 0.5}},
	)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.83, out[0].SemScore, 1e-6)
	assert.Equal(t, 0.5, out[0].LexScore)
}

func TestFuseAlphaExtremes(t *testing.T) {
	// Alpha 1: lexical contributes nothing.
	semOnly := mustRanker(t, 1.0)
	out := semOnly.Fuse(semResults("a", "b"), lexResults("b", "a"))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)

	// Alpha 0: semantic contributes nothing.
	lexOnly := mustRanker(t, 0.0)
	out = lexOnly.Fuse(semResults("a", "b"), lexResults("b", "a"))
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
}

func TestMaxScore(t *testing.T) {
	f := mustRanker(t, 0.7)
	assert.InDelta(t, 1.0/61.0, f.MaxScore(), 1e-12)

	// A candidate at rank 1 in both lists reaches exactly MaxScore.
	out := f.Fuse(semResults("top"), lexResults("top"))
	require.Len(t, out, 1)
	assert.InDelta(t, f.MaxScore(), out[0].FusedScore, 1e-12)
}
