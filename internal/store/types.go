// Package store provides vector storage (HNSW), the lexical term-overlap
// index, and document metadata persistence (SQLite). This is the
// persistence layer for the travel knowledge base.
package store

import (
	"context"
	"time"
)

// Category classifies a travel document.
type Category string

const (
	CategoryVisa    Category = "visa"
	CategoryCulture Category = "culture"
	CategoryLaw     Category = "law"
	CategorySafety  Category = "safety"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryVisa, CategoryCulture, CategoryLaw, CategorySafety:
		return true
	}
	return false
}

// Document is an immutable reference record in the travel knowledge base.
// Documents are created at seed time and replaced only by re-seeding.
type Document struct {
	ID          string
	Title       string
	Body        string
	Category    Category
	Country     string
	Source      string
	Reliability float64
	LastUpdated time.Time
	Tags        []string

	// Embedding is the precomputed document vector. Persisted so the
	// vector index can be rebuilt on startup without re-embedding.
	Embedding []float32
}

// Filters are exact-match conjunctions over document metadata.
// Zero-value fields are unconstrained; an empty filter matches everything.
type Filters struct {
	Country  string
	Category Category
}

// Empty reports whether the filter matches everything.
func (f Filters) Empty() bool {
	return f.Country == "" && f.Category == ""
}

// Matches reports whether the given metadata satisfies every set field.
func (f Filters) Matches(country string, category Category) bool {
	if f.Country != "" && f.Country != country {
		return false
	}
	if f.Category != "" && f.Category != category {
		return false
	}
	return true
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float32 // Cosine similarity in [-1, 1]
}

// LexicalResult is a single lexical search hit.
type LexicalResult struct {
	ID    string
	Score float64 // Term-overlap fraction in [0, 1]
}

// VectorIndex provides filtered semantic search over document embeddings.
type VectorIndex interface {
	// Upsert inserts vectors with their IDs and filterable metadata.
	// If an ID exists, it is replaced.
	Upsert(ctx context.Context, ids []string, vectors [][]float32, metas []DocMeta) error

	// Search finds the k nearest neighbors matching the filters,
	// ordered by descending similarity, ties broken by id ascending.
	Search(ctx context.Context, query []float32, k int, filters Filters) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// Clear removes every vector. Used by re-seeding.
	Clear(ctx context.Context) error

	// Count returns the number of indexed vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// DocMeta is the filterable metadata attached to an indexed vector.
type DocMeta struct {
	Country  string
	Category Category
}

// DocumentStore persists document metadata in SQLite.
type DocumentStore interface {
	// ReplaceAll atomically replaces the entire document set.
	// Seeding is all-or-nothing: a failure leaves the previous set intact.
	ReplaceAll(ctx context.Context, docs []*Document) error

	// Get returns a document by ID, or a storage error if absent.
	Get(ctx context.Context, id string) (*Document, error)

	// GetBatch returns documents for the given IDs in the given order.
	// Missing IDs are skipped, not errors.
	GetBatch(ctx context.Context, ids []string) ([]*Document, error)

	// ListAll returns every document, ordered by ID.
	ListAll(ctx context.Context) ([]*Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	Close() error
}

// VectorIndexConfig configures the HNSW index.
type VectorIndexConfig struct {
	// Dimensions is the embedding dimension.
	Dimensions int

	// M is HNSW max connections per layer (default: 16)
	M int

	// EfSearch is HNSW query-time search width (default: 20)
	EfSearch int
}

// DefaultVectorIndexConfig returns sensible defaults for the vector index.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   20,
	}
}
