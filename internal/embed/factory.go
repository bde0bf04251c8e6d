package embed

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/wayfarer/internal/config"
	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// New creates an embedder from configuration and wraps it in an LRU
// cache. Provider selection:
//
//	"ollama"  - Ollama HTTP API
//	"openai"  - OpenAI-compatible API via langchaingo
//	"static"  - deterministic hash embedder, no external dependency
//	""        - auto-detect: Ollama if reachable, else static
func New(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	inner, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(ctx, ollamaConfig(cfg))

	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})

	case "static":
		return NewStaticEmbedder(), nil

	case "":
		// Auto-detect: try Ollama, fall back to static.
		embedder, err := NewOllamaEmbedder(ctx, ollamaConfig(cfg))
		if err == nil {
			slog.Info("embedder_selected",
				slog.String("provider", "ollama"),
				slog.String("model", embedder.ModelName()))
			return embedder, nil
		}
		slog.Warn("ollama_unavailable_using_static",
			slog.String("error", err.Error()))
		return NewStaticEmbedder(), nil

	default:
		return nil, wferrors.ConfigError("unknown embeddings provider: "+cfg.Provider, nil)
	}
}

func ollamaConfig(cfg config.EmbeddingsConfig) OllamaConfig {
	return OllamaConfig{
		Host:       cfg.OllamaHost,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		BatchSize:  cfg.BatchSize,
	}
}
