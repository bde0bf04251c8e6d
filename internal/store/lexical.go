package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// LexicalIndex ranks documents by normalized term overlap with a query:
// for deduplicated query terms Q and document terms D, the score is
// |Q ∩ D| / |Q|, a value in [0, 1]. Documents scoring 0 are excluded.
//
// The index is fully in-process with no transient failure mode; the only
// error is an empty query.
type LexicalIndex struct {
	mu   sync.RWMutex
	docs map[string]*lexicalEntry
}

type lexicalEntry struct {
	terms map[string]struct{}
	meta  DocMeta
}

// NewLexicalIndex creates an empty lexical index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{
		docs: make(map[string]*lexicalEntry),
	}
}

// Index adds documents to the index. Terms come from title and body.
// An existing ID is replaced.
func (l *LexicalIndex) Index(docs []*Document) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, doc := range docs {
		l.docs[doc.ID] = &lexicalEntry{
			terms: TermSet(doc.Title + " " + doc.Body),
			meta:  DocMeta{Country: doc.Country, Category: doc.Category},
		}
	}
}

// ReplaceAll swaps the entire document set in one step.
func (l *LexicalIndex) ReplaceAll(docs []*Document) {
	next := make(map[string]*lexicalEntry, len(docs))
	for _, doc := range docs {
		next[doc.ID] = &lexicalEntry{
			terms: TermSet(doc.Title + " " + doc.Body),
			meta:  DocMeta{Country: doc.Country, Category: doc.Category},
		}
	}

	l.mu.Lock()
	l.docs = next
	l.mu.Unlock()
}

// Delete removes documents by ID.
func (l *LexicalIndex) Delete(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range ids {
		delete(l.docs, id)
	}
}

// Count returns the number of indexed documents.
func (l *LexicalIndex) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

// Search returns the k best term-overlap matches for the query, ordered
// by descending score, ties broken by id ascending.
func (l *LexicalIndex) Search(ctx context.Context, query string, k int, filters Filters) ([]*LexicalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, wferrors.LexicalError("lexical search requires a non-empty query")
	}
	if k <= 0 {
		return []*LexicalResult{}, nil
	}

	queryTerms := TermSet(query)
	if len(queryTerms) == 0 {
		return nil, wferrors.LexicalError("query contains no indexable terms")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	results := make([]*LexicalResult, 0, k)
	for id, entry := range l.docs {
		if !filters.Matches(entry.meta.Country, entry.meta.Category) {
			continue
		}

		matched := 0
		for term := range queryTerms {
			if _, ok := entry.terms[term]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		results = append(results, &LexicalResult{
			ID:    id,
			Score: float64(matched) / float64(len(queryTerms)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
