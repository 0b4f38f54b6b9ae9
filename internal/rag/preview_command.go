package rag

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwiater/docqa/internal/appconfig"
)

// RunPreviewCommand is the CLI entry point for rag preview. It prints the
// passages the pipeline would receive for the query without calling the
// generation model.
func RunPreviewCommand(ctx context.Context, out io.Writer, cfg *appconfig.Config, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	index, err := OpenIndex(cfg.IndexPath)
	if err != nil {
		return err
	}
	embedder, err := NewEmbedderFromConfig(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Query:           %s\n", query)
	fmt.Fprintf(out, "Index:           %s (%d chunks)\n", cfg.IndexPath, index.Len())
	fmt.Fprintf(out, "Embedding model: %s\n", cfg.EmbeddingModel)
	fmt.Fprintf(out, "Top K:           %d\n\n", cfg.TopK)

	passages, err := NewRetriever(index, embedder, cfg.TopK).Retrieve(ctx, query)
	if err != nil {
		return err
	}
	if len(passages) == 0 {
		fmt.Fprintln(out, "No passages found. Index a document first.")
		return nil
	}
	fmt.Fprintln(out, FormatPassages(passages))
	return nil
}
