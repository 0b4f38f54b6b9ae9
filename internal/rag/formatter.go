package rag

import (
	"fmt"
	"strings"

	"github.com/mwiater/docqa/internal/qa"
)

// FormatPassages renders passages for terminal output, one block per passage
// with its rank, page and score.
func FormatPassages(passages qa.Context) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range passages {
		page := "?"
		if n := p.Page(); n != qa.NoPage {
			page = fmt.Sprintf("%d", n+1)
		}
		source, _ := p.Metadata["source"].(string)
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "[%d] %s p.%s score=%.4f\n", i+1, source, page, p.RelevanceScore)
		b.WriteString(p.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
