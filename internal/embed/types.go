// Package embed provides embedding providers for queries and documents.
//
// The default path is Ollama over HTTP; when Ollama is unreachable the
// factory falls back to a deterministic hash-based embedder so the
// system stays usable without a model server.
package embed

import (
	"context"
	"math"
	"time"
)

// Purpose distinguishes query embeddings from document embeddings.
// Asymmetric encoders legitimately produce different vectors for the
// same text depending on purpose.
type Purpose string

const (
	PurposeQuery    Purpose = "query"
	PurposeDocument Purpose = "document"
)

// Common embedding constants
const (
	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 32

	// MaxBatchSize caps batch size to prevent memory exhaustion
	MaxBatchSize = 256

	// DefaultTimeout is the default timeout for embedding requests
	DefaultTimeout = 60 * time.Second

	// StaticDimensions is the embedding dimension for the static embedder
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text. Deterministic for
	// identical (text, purpose). Fails on empty input.
	Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in input order.
	// A partial failure fails the whole batch.
	EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
