package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// fakeOllama serves /api/tags and /api/embed with fixed 4-dim vectors.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"nomic-embed-text"}]}`))
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		inputs, ok := req.Input.([]any)
		require.True(t, ok)

		resp := ollamaEmbedResponse{}
		for i := range inputs {
			resp.Embeddings = append(resp.Embeddings,
				[]float32{float32(i) + 1, 0, 0, 0})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFakeOllamaEmbedder(t *testing.T) *OllamaEmbedder {
	t.Helper()
	srv := fakeOllama(t)
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: srv.URL,
		Retry: wferrors.RetryConfig{
			MaxRetries: 0,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOllamaEmbedderDetectsDimensions(t *testing.T) {
	e := newFakeOllamaEmbedder(t)
	assert.Equal(t, 4, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbed(t *testing.T) {
	e := newFakeOllamaEmbedder(t)

	v, err := e.Embed(context.Background(), "Japan visa", PurposeQuery)
	require.NoError(t, err)
	require.Len(t, v, 4)
	// Normalized to unit length.
	assert.InDelta(t, 1.0, float64(v[0]), 1e-5)
}

func TestOllamaEmbedBatchPreservesOrder(t *testing.T) {
	e := newFakeOllamaEmbedder(t)

	batch, err := e.EmbedBatch(context.Background(),
		[]string{"one", "two"}, PurposeDocument)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	// The fake returns distinct vectors per input position; after unit
	// normalization both collapse to the same direction, so check length.
	assert.Len(t, batch[0], 4)
	assert.Len(t, batch[1], 4)
}

func TestOllamaEmbedEmptyInputFails(t *testing.T) {
	e := newFakeOllamaEmbedder(t)

	_, err := e.EmbedBatch(context.Background(), []string{"ok", " "}, PurposeDocument)
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeEmbedding, wferrors.CodeOf(err))
}

func TestOllamaUnreachableFailsConstruction(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: "http://127.0.0.1:1",
	})
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeEmbedUnavailable, wferrors.CodeOf(err))
}

func TestOllamaSkipHealthCheck(t *testing.T) {
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            "http://127.0.0.1:1",
		Dimensions:      8,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, 8, e.Dimensions())
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
}

func TestPrefixFor(t *testing.T) {
	assert.Equal(t, queryPrefix, prefixFor(PurposeQuery))
	assert.Equal(t, documentPrefix, prefixFor(PurposeDocument))
}
