package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/docqa/internal/logging"
)

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("no text extracted from document")

// IngestResult summarizes one ingested document.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

// Indexer chunks, embeds and stores documents.
type Indexer struct {
	index        *Index
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

// NewIndexer builds an Indexer writing to index.
func NewIndexer(index *Index, embedder Embedder, chunkSize, chunkOverlap int) *Indexer {
	return &Indexer{index: index, embedder: embedder, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// IngestFile loads path and replaces the index contents with it. source names
// the document in passage metadata; when empty the file name is used.
func (ix *Indexer) IngestFile(ctx context.Context, path, source string) (IngestResult, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return IngestResult{}, err
	}
	if source != "" {
		doc.Source = source
	}
	return ix.Ingest(ctx, doc)
}

// Ingest embeds every chunk of doc and replaces the index contents. The previous
// corpus is kept if any step fails.
func (ix *Indexer) Ingest(ctx context.Context, doc Document) (IngestResult, error) {
	start := time.Now()
	chunks := ChunkPages(doc, ix.chunkSize, ix.chunkOverlap)
	if len(chunks) == 0 {
		return IngestResult{}, ErrNoText
	}

	docID := uuid.NewString()
	logging.LogEvent("[INDEX] %s: %d pages, %d chunks (document %s)", doc.Source, len(doc.Pages), len(chunks), docID)

	entries := make([]IndexEntry, 0, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return IngestResult{}, err
		}
		vec, err := ix.embedder.Embed(ctx, c.Text)
		if err != nil {
			return IngestResult{}, fmt.Errorf("embed %s chunk %d: %w", doc.Source, i, err)
		}
		entries = append(entries, IndexEntry{
			ChunkID:    fmt.Sprintf("%s:%d", docID, i),
			DocumentID: docID,
			Source:     doc.Source,
			Page:       c.Page,
			StartIndex: c.Offset,
			Text:       c.Text,
			Embedding:  vec,
		})
	}

	if err := ix.index.Replace(entries); err != nil {
		return IngestResult{}, err
	}
	logging.LogEvent("[INDEX] %s indexed in %s", doc.Source, time.Since(start).Truncate(time.Millisecond))

	return IngestResult{
		DocumentID: docID,
		Source:     doc.Source,
		Pages:      len(doc.Pages),
		Chunks:     len(entries),
	}, nil
}
