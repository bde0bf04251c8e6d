// Package agent routes queries through a small acyclic state machine:
// classify the intent, then greet, retrieve-and-answer, or answer
// ungrounded. One query per invocation; no conversation memory.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/wayfarer/internal/answer"
	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/search"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// Request is one question with optional filters.
type Request struct {
	Query    string
	Country  string
	Category store.Category
	TopK     int
}

// Response is the assembled answer for a request.
type Response struct {
	RequestID  string   `json:"request_id"`
	Intent     Intent   `json:"intent"`
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources,omitempty"`
	Confidence float64  `json:"confidence"`
	Degraded   bool     `json:"degraded"`
	Ungrounded bool     `json:"ungrounded"`
	ElapsedMS  int64    `json:"elapsed_ms"`
}

// Router executes the state machine for each request.
type Router struct {
	retriever  search.Retriever
	generator  answer.Generator
	classifier *IntentClassifier
	logger     *slog.Logger
}

// NewRouter creates a router over the retrieval and generation services.
func NewRouter(retriever search.Retriever, generator answer.Generator, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		retriever:  retriever,
		generator:  generator,
		classifier: NewIntentClassifier(),
		logger:     logger,
	}
}

// Handle runs one request through START → CLASSIFY → handler → DONE.
// A retrieval failure falls back to ungrounded generation rather than
// failing the request; a generation failure after retries is the only
// error surfaced to the caller.
func (r *Router) Handle(ctx context.Context, req Request) (*Response, error) {
	state := newAgentState(uuid.NewString(), req.Query,
		store.Filters{Country: req.Country, Category: req.Category}, req.TopK)
	start := time.Now()

	logger := r.logger.With(slog.String("request_id", state.RequestID))

	state.advance(StateClassify)
	state.Intent = r.classifier.Classify(state.Query)
	logger.Info("intent_classified",
		slog.String("intent", string(state.Intent)))

	var err error
	switch state.Intent {
	case IntentGreeting:
		state.advance(StateGreet)
		r.greet(state)
	case IntentRAGQuery:
		state.advance(StateRetrieveAndAnswer)
		err = r.retrieveAndAnswer(ctx, state, logger)
	default:
		state.advance(StateGeneralAnswer)
		err = r.generalAnswer(ctx, state)
	}
	if err != nil {
		return nil, err
	}

	state.advance(StateDone)
	resp := &Response{
		RequestID:  state.RequestID,
		Intent:     state.Intent,
		Answer:     state.Answer,
		Sources:    state.Sources,
		Confidence: state.Confidence,
		Degraded:   state.Degraded,
		Ungrounded: state.Ungrounded,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}

	logger.Info("request_complete",
		slog.String("intent", string(state.Intent)),
		slog.Float64("confidence", resp.Confidence),
		slog.Bool("degraded", resp.Degraded),
		slog.Int64("elapsed_ms", resp.ElapsedMS))
	return resp, nil
}

// greet answers from the canned greeting map. No retrieval, no model.
func (r *Router) greet(state *AgentState) {
	state.Answer = GreetingResponse(state.Query)
	state.Confidence = 1.0
}

// retrieveAndAnswer runs the grounded path. Bad input surfaces as an
// error; a failed retrieval takes the recovery edge to the ungrounded
// path with the response flagged degraded.
func (r *Router) retrieveAndAnswer(ctx context.Context, state *AgentState, logger *slog.Logger) error {
	outcome, err := r.retriever.Retrieve(ctx, state.Query, state.Filters, state.TopK)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeEmptyQuery {
			return err
		}
		logger.Warn("retrieval_failed_falling_back",
			slog.String("error", err.Error()))
		state.advance(StateGeneralAnswer)
		state.Degraded = true
		return r.generalAnswer(ctx, state)
	}

	state.Outcome = outcome
	state.Degraded = outcome.Degraded

	text, cited, err := r.generator.Generate(ctx, state.Query, outcome)
	if err != nil {
		return err
	}

	state.Answer = text
	state.Confidence = outcome.Confidence
	state.Sources = sourcesFor(outcome, cited)
	return nil
}

// generalAnswer runs the ungrounded path. Ungrounded answers carry
// confidence 0: there is no corpus evidence to measure them against.
func (r *Router) generalAnswer(ctx context.Context, state *AgentState) error {
	text, err := r.generator.GenerateUngrounded(ctx, state.Query)
	if err != nil {
		return err
	}
	state.Answer = text
	state.Ungrounded = true
	state.Confidence = 0
	return nil
}

// sourcesFor maps cited document IDs back to attributed sources in
// fused-rank order. An answer without citation markers attributes every
// grounding passage.
func sourcesFor(outcome *search.RetrievalOutcome, cited []string) []Source {
	citedSet := make(map[string]bool, len(cited))
	for _, id := range cited {
		citedSet[id] = true
	}

	sources := make([]Source, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		if len(cited) > 0 && !citedSet[res.Document.ID] {
			continue
		}
		sources = append(sources, Source{
			ID:       res.Document.ID,
			Title:    res.Document.Title,
			Score:    res.FusedScore,
			Category: res.Document.Category,
			Country:  res.Document.Country,
		})
	}
	return sources
}
