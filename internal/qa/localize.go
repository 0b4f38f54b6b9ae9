package qa

import "strings"

// Localization pins a piece of generated text to a passage and page.
type Localization struct {
	RelevantText string `json:"relevant_text"`
	PageIndex    int    `json:"page_index"`
	ChunkIndex   int    `json:"chunk_index"`
}

// Found reports whether the text was matched to a passage.
func (l Localization) Found() bool {
	return l.ChunkIndex != NoPage
}

func notFound(text string) Localization {
	return Localization{RelevantText: text, PageIndex: NoPage, ChunkIndex: NoPage}
}

// Normalize collapses every whitespace run to a single space, trims the ends and
// lower-cases the result.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Localize finds the first passage, in rank order, whose normalized content contains
// the normalized text. A miss, or empty text, yields NoPage for both indices.
func Localize(text string, ctx Context) Localization {
	if text == "" {
		return notFound(text)
	}
	needle := Normalize(text)
	if needle == "" {
		return notFound(text)
	}
	for i, passage := range ctx {
		if strings.Contains(Normalize(passage.Content), needle) {
			return Localization{
				RelevantText: text,
				PageIndex:    passage.Page(),
				ChunkIndex:   i,
			}
		}
	}
	return notFound(text)
}
