// Package answer turns retrieval outcomes into grounded natural-language
// answers via a langchaingo chat model, with source citations.
package answer

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/search"
)

// DefaultContextBudget caps the grounding context handed to the model,
// in characters.
const DefaultContextBudget = 6000

// DefaultTemperature keeps grounded answers close to the context.
const DefaultTemperature = 0.2

// citationPattern matches [n] source markers in model output.
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Generator produces answers from retrieval outcomes.
type Generator interface {
	// Generate answers the query from the outcome's passages. Returns the
	// answer text and the IDs of the sources the answer cites. An empty
	// outcome yields a fixed fallback without calling the model.
	Generate(ctx context.Context, query string, outcome *search.RetrievalOutcome) (string, []string, error)

	// GenerateUngrounded answers from model knowledge alone, with no
	// corpus context. Used when retrieval is unavailable.
	GenerateUngrounded(ctx context.Context, query string) (string, error)
}

// Config configures the LLM generator.
type Config struct {
	// ContextBudget is the maximum grounding context size in characters.
	ContextBudget int

	// Temperature is passed through to the model.
	Temperature float64

	// Retry wraps each model call. Zero value uses DefaultRetryConfig.
	Retry errors.RetryConfig
}

// DefaultConfig returns the default generation tuning.
func DefaultConfig() Config {
	return Config{
		ContextBudget: DefaultContextBudget,
		Temperature:   DefaultTemperature,
		Retry:         errors.DefaultRetryConfig(),
	}
}

// LLMGenerator implements Generator on a langchaingo chat model.
type LLMGenerator struct {
	model  llms.Model
	config Config
	logger *slog.Logger
}

// Verify interface implementation at compile time
var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator creates a generator around a chat model.
func NewLLMGenerator(model llms.Model, cfg Config, logger *slog.Logger) *LLMGenerator {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = errors.DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGenerator{model: model, config: cfg, logger: logger}
}

// Generate builds the grounding context, calls the model, and extracts
// the cited source IDs from the [n] markers in the response.
func (g *LLMGenerator) Generate(ctx context.Context, query string, outcome *search.RetrievalOutcome) (string, []string, error) {
	if outcome.Empty() {
		return InsufficientInfoAnswer, nil, nil
	}

	grounding, passages := buildContext(outcome.Results, g.config.ContextBudget)

	start := time.Now()
	text, err := g.call(ctx, groundedSystemPrompt, groundedUserPrompt(query, grounding))
	if err != nil {
		return "", nil, err
	}

	cited := citedIDs(text, passages)
	g.logger.Debug("answer_generated",
		slog.Int("passages", len(passages)),
		slog.Int("cited", len(cited)),
		slog.Int("context_chars", len(grounding)),
		slog.Duration("elapsed", time.Since(start)))
	return text, cited, nil
}

// GenerateUngrounded answers with no corpus context.
func (g *LLMGenerator) GenerateUngrounded(ctx context.Context, query string) (string, error) {
	return g.call(ctx, ungroundedSystemPrompt, query)
}

// call invokes the model under retry and normalizes failures to a
// GenerationError.
func (g *LLMGenerator) call(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	var text string
	err := errors.Retry(ctx, g.config.Retry, func() error {
		response, err := g.model.GenerateContent(ctx, content,
			llms.WithTemperature(g.config.Temperature))
		if err != nil {
			return errors.Wrap(errors.ErrCodeModelCall, err)
		}
		if len(response.Choices) == 0 {
			return errors.New(errors.ErrCodeModelCall, "model returned no choices", nil)
		}
		text = strings.TrimSpace(response.Choices[0].Content)
		return nil
	})
	if err != nil {
		return "", errors.GenerationError("model call failed after retries", err)
	}
	return text, nil
}

// citedIDs maps [n] markers in the answer back to source document IDs,
// deduplicated in first-mention order. Markers outside the passage range
// are ignored.
func citedIDs(text string, passages []passage) []string {
	byNum := make(map[int]string, len(passages))
	for _, p := range passages {
		byNum[p.num] = p.id
	}

	seen := make(map[string]bool)
	var ids []string
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		id, ok := byNum[n]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
