// Package search provides hybrid retrieval over the travel knowledge
// base: semantic and lexical lookups run concurrently and are merged
// with Reciprocal Rank Fusion (RRF).
package search

import (
	"sort"

	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// DefaultRRFConstant is the standard RRF damping parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// DefaultAlpha is the default semantic branch weight.
const DefaultAlpha = 0.7

// FusedResult represents a single candidate after RRF fusion.
type FusedResult struct {
	ID         string  // Document identifier
	FusedScore float64 // Combined RRF score
	SemScore   float64 // Original vector similarity (preserved)
	SemRank    int     // Position in semantic list (1-indexed, 0 if absent)
	LexScore   float64 // Original term-overlap score (preserved)
	LexRank    int     // Position in lexical list (1-indexed, 0 if absent)
}

// bestRank returns the smaller of the two individual ranks, treating an
// absent rank as infinite.
func (r *FusedResult) bestRank() int {
	switch {
	case r.SemRank == 0:
		return r.LexRank
	case r.LexRank == 0:
		return r.SemRank
	case r.SemRank < r.LexRank:
		return r.SemRank
	default:
		return r.LexRank
	}
}

// FusionRanker merges a semantic ranking and a lexical ranking using
// Reciprocal Rank Fusion:
//
//	fused(id) = α · 1/(k + rank_sem(id)) + (1−α) · 1/(k + rank_lex(id))
//
// A candidate absent from one list contributes 0 for that term (rank
// treated as infinite). Rank position is the only cross-method
// comparable signal; raw similarity and overlap scores live on
// different scales and are never averaged.
type FusionRanker struct {
	alpha float64 // semantic branch weight in [0, 1]
	k     int     // damping constant
}

// NewFusionRanker creates a fusion ranker. Alpha outside [0,1] is a
// construction-time configuration error, never a per-query one.
func NewFusionRanker(alpha float64, k int) (*FusionRanker, error) {
	if alpha < 0 || alpha > 1 {
		return nil, errors.ConfigError("fusion alpha must be in [0,1]", nil)
	}
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &FusionRanker{alpha: alpha, k: k}, nil
}

// Fuse merges the two rankings. The output is sorted descending by
// fused score; ties break by the smaller individual rank, then by id.
func (f *FusionRanker) Fuse(sem []*store.VectorResult, lex []*store.LexicalResult) []*FusedResult {
	if len(sem) == 0 && len(lex) == 0 {
		return []*FusedResult{}
	}

	fused := make(map[string]*FusedResult, len(sem)+len(lex))

	for rank, r := range sem {
		c := f.getOrCreate(fused, r.ID)
		c.SemScore = float64(r.Score)
		c.SemRank = rank + 1
		c.FusedScore += f.alpha / float64(f.k+rank+1)
	}

	for rank, r := range lex {
		c := f.getOrCreate(fused, r.ID)
		c.LexScore = r.Score
		c.LexRank = rank + 1
		c.FusedScore += (1 - f.alpha) / float64(f.k+rank+1)
	}

	results := make([]*FusedResult, 0, len(fused))
	for _, c := range fused {
		results = append(results, c)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})
	return results
}

// MaxScore is the highest fused score the ranker can produce, reached
// by a candidate at rank 1 in both lists. Used to scale confidence.
func (f *FusionRanker) MaxScore() float64 {
	return 1.0 / float64(f.k+1)
}

func (f *FusionRanker) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if c, ok := m[id]; ok {
		return c
	}
	c := &FusedResult{ID: id}
	m[id] = c
	return c
}

// compare reports whether a ranks before b.
func (f *FusionRanker) compare(a, b *FusedResult) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	if ar, br := a.bestRank(), b.bestRank(); ar != br {
		return ar < br
	}
	return a.ID < b.ID
}
