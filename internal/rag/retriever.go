package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/docqa/internal/qa"
)

// Retriever embeds a query and returns the closest indexed chunks as passages.
type Retriever struct {
	index    *Index
	embedder Embedder
	topK     int
}

// NewRetriever builds a Retriever returning at most topK passages.
func NewRetriever(index *Index, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{index: index, embedder: embedder, topK: topK}
}

// Retrieve returns passages most relevant first. An empty index yields an empty
// context without contacting the embedding host.
func (r *Retriever) Retrieve(ctx context.Context, query string) (qa.Context, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if r.index.Len() == 0 {
		return qa.Context{}, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits := r.index.Search(vec, r.topK)
	passages := make(qa.Context, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, qa.NewPassage(hit.Entry.Text, hit.Entry.Metadata(), hit.Score))
	}
	return passages, nil
}
