package agent

import (
	"regexp"
	"strings"
)

// Compiled patterns for intent classification.
// Compiled at package init for performance.
// Trailing punctuation on greetings: "hi!", "thanks."
var trailingPunctPattern = regexp.MustCompile(`[!.?,\s]+$`)

// greetingResponses maps a normalized greeting to its canned reply.
// Deterministic: the same greeting always yields the same answer.
var greetingResponses = map[string]string{
	"hi":        "Hello! I'm your travel assistant. How can I help you with your travel plans?",
	"hello":     "Hello! I'm here to help with travel information. What would you like to know?",
	"hey":       "Hey there! Ask me anything about visa requirements, local laws, cultural tips, or travel safety.",
	"help":      "I can help you with:\n- Visa requirements and immigration\n- Local laws and regulations\n- Cultural etiquette and customs\n- Safety guidelines\n- Travel tips and recommendations\n\nWhat would you like to know?",
	"thanks":    "You're welcome! Safe travels!",
	"thank you": "You're welcome! Feel free to ask if you have more questions.",
	"bye":       "Goodbye! Have a great trip!",
}

// travelKeywords route a query to retrieval when any of them appears.
var travelKeywords = []string{
	"visa", "passport", "immigration", "travel", "visit", "trip",
	"law", "legal", "regulation", "rule", "prohibited", "allowed",
	"culture", "custom", "etiquette", "tradition", "behavior",
	"safe", "danger", "crime", "emergency", "health",
	"flight", "hotel", "transport", "accommodation", "currency",
	"food", "restaurant", "eat", "drink", "cuisine",
	"country", "abroad", "border", "embassy", "tourist",
}

// IntentClassifier assigns exactly one intent per query using keyword
// heuristics. No model call; classification must never be a point of
// failure.
type IntentClassifier struct{}

// NewIntentClassifier creates a keyword-based classifier.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

// Classify determines the query intent. Greeting lookups are checked
// first (most specific), then travel keywords; everything else is chat.
func (c *IntentClassifier) Classify(query string) Intent {
	normalized := normalizeGreeting(query)
	if _, ok := greetingResponses[normalized]; ok {
		return IntentGreeting
	}

	lower := strings.ToLower(query)
	for _, kw := range travelKeywords {
		if strings.Contains(lower, kw) {
			return IntentRAGQuery
		}
	}

	return IntentGeneralChat
}

// GreetingResponse returns the canned reply for a greeting query. The
// fallback covers greetings that classified via normalization but have
// no exact entry.
func GreetingResponse(query string) string {
	if resp, ok := greetingResponses[normalizeGreeting(query)]; ok {
		return resp
	}
	return "I'm a travel assistant specialized in visa requirements, local laws, cultural etiquette, and safety information. How can I help you with your travel plans?"
}

func normalizeGreeting(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	return trailingPunctPattern.ReplaceAllString(q, "")
}
