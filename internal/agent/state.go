package agent

import (
	"github.com/Aman-CERP/wayfarer/internal/search"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentRAGQuery    Intent = "rag_query"
	IntentGeneralChat Intent = "general_chat"
)

// State is a position in the per-request state machine.
type State string

const (
	StateStart             State = "start"
	StateClassify          State = "classify"
	StateGreet             State = "greet"
	StateRetrieveAndAnswer State = "retrieve_and_answer"
	StateGeneralAnswer     State = "general_answer"
	StateDone              State = "done"
)

// AgentState carries one request through the state machine. It is
// request-scoped and never shared between goroutines.
type AgentState struct {
	RequestID string
	Query     string
	Filters   store.Filters
	TopK      int

	Intent  Intent
	Outcome *search.RetrievalOutcome
	Answer  string
	Sources []Source

	// Degraded is set when retrieval fell back or reported degradation.
	Degraded bool
	// Ungrounded marks answers produced without corpus context.
	Ungrounded bool
	Confidence float64

	current State
	// trace records visited states in order; the machine has no cycles,
	// so a state appears at most once.
	trace []State
}

func newAgentState(requestID, query string, filters store.Filters, topK int) *AgentState {
	s := &AgentState{
		RequestID: requestID,
		Query:     query,
		Filters:   filters,
		TopK:      topK,
		current:   StateStart,
	}
	s.trace = append(s.trace, StateStart)
	return s
}

// advance moves the machine to the next state and records it.
func (s *AgentState) advance(next State) {
	s.current = next
	s.trace = append(s.trace, next)
}

// Current returns the machine's position.
func (s *AgentState) Current() State {
	return s.current
}

// Trace returns the visited states in order.
func (s *AgentState) Trace() []State {
	return s.trace
}

// Source is one attributed document in a response.
type Source struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Score    float64        `json:"score"`
	Category store.Category `json:"category"`
	Country  string         `json:"country"`
}
