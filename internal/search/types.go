package search

import (
	"context"

	"github.com/Aman-CERP/wayfarer/internal/store"
)

// Result is one retrieved document with its fusion provenance.
type Result struct {
	Document   *store.Document
	FusedScore float64
	SemRank    int // 0 if absent from the semantic ranking
	LexRank    int // 0 if absent from the lexical ranking
}

// RetrievalOutcome is the result of one retrieve call: the top-K fused
// results plus a confidence estimate.
type RetrievalOutcome struct {
	Results    []*Result
	Confidence float64 // in [0, 1]

	// Degraded is set when the vector branch failed and the outcome was
	// built from lexical ranking alone. Degraded outcomes carry a lower
	// confidence ceiling.
	Degraded bool
}

// Empty reports whether retrieval found no candidates.
func (o *RetrievalOutcome) Empty() bool {
	return o == nil || len(o.Results) == 0
}

// Retriever is the read side of the retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string, filters store.Filters, topK int) (*RetrievalOutcome, error)
}

// lexicalSearcher is the lexical branch dependency.
type lexicalSearcher interface {
	Search(ctx context.Context, query string, k int, filters store.Filters) ([]*store.LexicalResult, error)
}
