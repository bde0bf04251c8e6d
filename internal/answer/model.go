package answer

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Aman-CERP/wayfarer/internal/config"
	"github.com/Aman-CERP/wayfarer/internal/errors"
)

// NewModel builds the chat model from config.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.OllamaHost != "" {
			opts = append(opts, ollama.WithServerURL(cfg.OllamaHost))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, errors.New(errors.ErrCodeModelCall, "failed to create ollama model", err)
		}
		return model, nil

	case "openai":
		// "none" satisfies OpenAI-compatible servers without auth.
		token := cfg.APIKey
		if token == "" {
			token = "none"
		}
		opts := []openai.Option{
			openai.WithToken(token),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, errors.New(errors.ErrCodeModelCall, "failed to create openai model", err)
		}
		return model, nil

	default:
		return nil, errors.ConfigError("unknown llm provider: "+cfg.Provider, nil)
	}
}
