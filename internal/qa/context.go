// Package qa implements the question-answering pipeline: retrieval of passages,
// generation of an answer, self-evaluation of that answer and localization of the
// supporting evidence inside the retrieved passages.
package qa

import (
	"encoding/json"
	"math"
	"strings"
)

// NoPage is the sentinel page and chunk index meaning "unknown" or "not found".
const NoPage = -1

// Passage is a single retrieved chunk of the source document.
type Passage struct {
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata"`
	RelevanceScore float64        `json:"relevance_score"`
}

// NewPassage builds a Passage with cleaned content. Hard line-break hyphenation
// ("-\n") is removed and surrounding whitespace trimmed; localization relies on it.
func NewPassage(content string, metadata map[string]any, score float64) Passage {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Passage{
		Content:        CleanContent(content),
		Metadata:       metadata,
		RelevanceScore: score,
	}
}

// CleanContent removes PDF hyphenation artifacts and trims the text.
func CleanContent(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, "-\n", ""))
}

// Page returns the source page of the passage, or NoPage when the metadata has no
// usable page value.
func (p Passage) Page() int {
	raw, ok := p.Metadata["page"]
	if !ok {
		return NoPage
	}
	var page int
	switch v := raw.(type) {
	case int:
		page = v
	case int32:
		page = int(v)
	case int64:
		page = int(v)
	case float64:
		if v != math.Trunc(v) {
			return NoPage
		}
		page = int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return NoPage
		}
		page = int(n)
	default:
		return NoPage
	}
	if page < 0 {
		return NoPage
	}
	return page
}

// Context is the ordered set of passages retrieved for one question, most relevant
// first. Order is significant: localization prefers earlier passages.
type Context []Passage

// String concatenates passage contents in rank order, one per line.
func (c Context) String() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.Content
	}
	return strings.Join(parts, "\n")
}
