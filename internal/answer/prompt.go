package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/wayfarer/internal/search"
)

const groundedSystemPrompt = `You are a travel information assistant. Answer the question using ONLY the numbered context passages below. Cite every claim with the passage number in square brackets, e.g. [1]. If the passages do not contain the answer, say so plainly. Do not invent facts.`

const ungroundedSystemPrompt = `You are a travel information assistant. Answer the question from general knowledge. Be brief and note that the answer is not backed by the reference corpus.`

// InsufficientInfoAnswer is returned without a model call when retrieval
// produced nothing to ground on.
const InsufficientInfoAnswer = "I don't have enough information in my reference corpus to answer that question. Try rephrasing, or ask about visas, local laws, customs, or safety for a specific country."

// passage is one context entry handed to the model, numbered for citation.
type passage struct {
	num int
	id  string
}

// buildContext assembles the grounding context from results in fused-rank
// order, whole passages only, within budget chars. The first passage that
// does not fit ends the context; everything after it is dropped, so the
// context is always a prefix of the fused ranking. The head passage is the
// exception: if it alone exceeds the budget it is trimmed rather than
// dropped, so a non-empty outcome always grounds the model on something.
func buildContext(results []*search.Result, budget int) (string, []passage) {
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	passages := make([]passage, 0, len(results))

	for _, r := range results {
		entry := fmt.Sprintf("[%d] %s (%s, %s)\n%s\n\n",
			len(passages)+1, r.Document.Title, r.Document.Country,
			r.Document.Category, r.Document.Body)

		if b.Len()+len(entry) > budget {
			if len(passages) == 0 {
				// Back off to a rune boundary so the trimmed head stays
				// valid UTF-8.
				cut := budget
				for cut > 0 && !utf8.RuneStart(entry[cut]) {
					cut--
				}
				b.WriteString(entry[:cut])
				passages = append(passages, passage{num: 1, id: r.Document.ID})
			}
			break
		}
		b.WriteString(entry)
		passages = append(passages, passage{num: len(passages) + 1, id: r.Document.ID})
	}

	return strings.TrimRight(b.String(), "\n"), passages
}

func groundedUserPrompt(query, context string) string {
	return fmt.Sprintf("Context passages:\n\n%s\n\nQuestion: %s", context, query)
}
