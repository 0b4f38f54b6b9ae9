package rag

// IndexEntry is a single JSONL record in the index.
type IndexEntry struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Page       int       `json:"page"`
	StartIndex int       `json:"start_index"`
	Text       string    `json:"text"`
	Embedding  []float64 `json:"embedding"`
}

// Metadata returns the passage metadata exposed to the pipeline and API.
func (e IndexEntry) Metadata() map[string]any {
	return map[string]any{
		"page":        e.Page,
		"start_index": e.StartIndex,
		"source":      e.Source,
		"chunk_id":    e.ChunkID,
		"document_id": e.DocumentID,
	}
}

// ScoredEntry is an index entry plus its similarity to a query.
type ScoredEntry struct {
	Entry IndexEntry
	Score float64
}

// Page is the extracted text of one document page. Number is zero-based.
type Page struct {
	Number int
	Text   string
}

// Document is a loaded source file split into pages.
type Document struct {
	Source string
	Pages  []Page
}

// Chunk is a window of page text ready to be embedded.
type Chunk struct {
	Page   int
	Offset int
	Text   string
}
