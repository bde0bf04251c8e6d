package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// OpenAIConfig configures the OpenAI-compatible embedder.
type OpenAIConfig struct {
	// BaseURL points at the API; local OpenAI-compatible servers work too.
	BaseURL string
	// APIKey may be a placeholder for local services without auth.
	APIKey     string
	Model      string
	Dimensions int
}

// OpenAIEmbedder generates embeddings through any OpenAI-compatible
// embedding API via langchaingo.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder backed by an OpenAI-compatible API.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible services accept any token.
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, wferrors.EmbeddingError("failed to create openai client", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, wferrors.EmbeddingError("failed to create embedder", err)
	}

	return &OpenAIEmbedder{
		embedder:   embedder,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, purpose)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, wferrors.EmbeddingError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, wferrors.EmbeddingError(fmt.Sprintf("empty input at index %d", i), nil)
		}
	}

	var (
		vectors [][]float32
		err     error
	)
	if purpose == PurposeQuery && len(texts) == 1 {
		var vec []float32
		vec, err = e.embedder.EmbedQuery(ctx, texts[0])
		vectors = [][]float32{vec}
	} else {
		vectors, err = e.embedder.EmbedDocuments(ctx, texts)
	}
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeEmbedUnavailable, "embedding request failed", err)
	}
	if len(vectors) != len(texts) {
		return nil, wferrors.EmbeddingError("embedding count mismatch", nil)
	}

	for i, v := range vectors {
		vectors[i] = normalizeVector(v)
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available reports readiness; the API is probed lazily on first use.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
