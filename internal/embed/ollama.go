package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// Ollama defaults
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"

	// ollamaConnectTimeout bounds the availability probe.
	ollamaConnectTimeout = 5 * time.Second
)

// Purpose prefixes for asymmetric retrieval encoders. nomic-embed-text
// expects these task prefixes on input text.
const (
	queryPrefix    = "search_query: "
	documentPrefix = "search_document: "
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int // 0 = auto-detect from first embedding
	BatchSize  int
	Timeout    time.Duration

	// SkipHealthCheck skips the startup probe (testing).
	SkipHealthCheck bool

	// Retry controls retry behavior for transient failures.
	Retry wferrors.RetryConfig
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string
	dims      int

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*OllamaEmbedder)(nil)

// ollamaEmbedRequest is the /api/embed request body.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response body.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates a new Ollama embedder.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = wferrors.DefaultRetryConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}

	// Timeouts are per-request via context, not on the client, so the
	// probe and embed calls can use different bounds.
	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		if !e.Available(checkCtx) {
			transport.CloseIdleConnections()
			return nil, wferrors.New(wferrors.ErrCodeEmbedUnavailable,
				fmt.Sprintf("ollama not reachable at %s", cfg.Host), nil)
		}

		if e.dims == 0 {
			dims, err := e.detectDimensions(checkCtx)
			if err != nil {
				transport.CloseIdleConnections()
				return nil, wferrors.EmbeddingError("failed to detect embedding dimensions", err)
			}
			e.dims = dims
		}
	}

	return e, nil
}

// detectDimensions auto-detects embedding dimensions from a test embedding.
func (e *OllamaEmbedder) detectDimensions(ctx context.Context) (int, error) {
	embeddings, err := e.doEmbed(ctx, []string{documentPrefix + "dimension detection"})
	if err != nil {
		return 0, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return 0, fmt.Errorf("empty embedding returned")
	}
	return len(embeddings[0]), nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, purpose)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Any empty text or
// transport failure fails the whole batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, wferrors.EmbeddingError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, wferrors.EmbeddingError(fmt.Sprintf("empty input at index %d", i), nil)
		}
		inputs[i] = prefixFor(purpose) + text
	}

	results := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(inputs) {
			end = len(inputs)
		}

		var batch [][]float32
		err := wferrors.Retry(ctx, e.config.Retry, func() error {
			reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
			defer cancel()

			var embedErr error
			batch, embedErr = e.doEmbed(reqCtx, inputs[start:end])
			return embedErr
		})
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, wferrors.EmbeddingError(
				fmt.Sprintf("expected %d embeddings, got %d", end-start, len(batch)), nil)
		}
		results = append(results, batch...)
	}

	for i, v := range results {
		results[i] = normalizeVector(v)
		if e.dims != 0 && len(v) != e.dims {
			return nil, wferrors.EmbeddingError(
				fmt.Sprintf("embedding dimension changed: expected %d, got %d", e.dims, len(v)), nil)
		}
	}
	return results, nil
}

// doEmbed performs one /api/embed call.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.modelName, Input: inputs})
	if err != nil {
		return nil, wferrors.EmbeddingError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, wferrors.EmbeddingError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeEmbedUnavailable, "ollama request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, wferrors.New(wferrors.ErrCodeEmbedUnavailable,
			fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, wferrors.EmbeddingError("failed to decode response", err)
	}
	return result.Embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.modelName
}

// Available probes the Ollama API.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, ollamaConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Close releases resources.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

// prefixFor returns the task prefix for a purpose.
func prefixFor(purpose Purpose) string {
	if purpose == PurposeQuery {
		return queryPrefix
	}
	return documentPrefix
}
