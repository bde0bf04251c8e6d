package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
	}{
		{"config", ErrCodeConfigInvalid, CategoryConfig, SeverityFatal},
		{"storage", ErrCodeVectorSearch, CategoryStorage, SeverityError},
		{"backend", ErrCodeEmbedding, CategoryBackend, SeverityError},
		{"validation", ErrCodeEmptyQuery, CategoryValidation, SeverityError},
		{"pipeline", ErrCodeRetrievalFailed, CategoryPipeline, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestError_UnwrapPreservesChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := SearchError("vector backend unreachable", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeVectorSearch, CodeOf(err))
}

func TestError_IsMatchesByCode(t *testing.T) {
	a := SearchError("first", nil)
	b := SearchError("second", nil)
	c := EmbeddingError("other", nil)

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestError_IsThroughWrapping(t *testing.T) {
	inner := RetrievalError("both branches failed", nil)
	wrapped := fmt.Errorf("answering query: %w", inner)

	assert.ErrorIs(t, wrapped, RetrievalError("", nil))
	assert.Equal(t, ErrCodeRetrievalFailed, CodeOf(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeModelCall, "model call failed", nil)))
	assert.True(t, IsRetryable(SearchError("backend down", nil)))
	assert.False(t, IsRetryable(ConfigError("bad alpha", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain error")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeModelCall, nil))
}

func TestWithDetail_Chains(t *testing.T) {
	err := EmbeddingError("empty input", nil).
		WithDetail("purpose", "query").
		WithDetail("provider", "ollama")

	assert.Equal(t, "query", err.Details["purpose"])
	assert.Equal(t, "ollama", err.Details["provider"])
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	wantErr := stderrors.New("still failing")
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	// Initial attempt plus MaxRetries retries.
	assert.Equal(t, 3, attempts)
}

func TestRetry_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := RetryConfig{
		MaxRetries:   10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Retry(ctx, cfg, func() error {
		attempts++
		cancel()
		return stderrors.New("fail")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
