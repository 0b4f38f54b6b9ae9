package rag

import (
	"strings"
	"unicode"
)

// ChunkText splits text into windows of at most chunkSize characters, each
// starting overlap characters before the previous one ended. Windows end on
// whitespace when one exists in their second half. Offset is the rune index of
// the window start.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []Chunk
	for start := 0; start < len(runes); {
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= len(runes) {
			break
		}
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			for i := end; i > start+chunkSize/2; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, Chunk{Offset: start, Text: piece})
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		// start the overlap on a word boundary when one exists
		if next > 0 && !unicode.IsSpace(runes[next-1]) {
			for j := next; j < end; j++ {
				if unicode.IsSpace(runes[j]) {
					next = j
					break
				}
			}
		}
		start = next
	}
	return chunks
}

// ChunkPages chunks every page of doc, tagging chunks with their page number.
func ChunkPages(doc Document, chunkSize, overlap int) []Chunk {
	var out []Chunk
	for _, page := range doc.Pages {
		for _, c := range ChunkText(page.Text, chunkSize, overlap) {
			c.Page = page.Number
			out = append(out, c)
		}
	}
	return out
}
