package docqa

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
)

// indexCmd replaces the indexed corpus with a local document.
var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Index a PDF or text document, replacing the current corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(ctx context.Context, out io.Writer, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	agent, err := newAgent()
	if err != nil {
		return err
	}
	defer agent.Close()

	res, err := agent.Upload(ctx, path, filepath.Base(path))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Indexed %s: %d pages, %d chunks (document %s)\n", res.Source, res.Pages, res.Chunks, res.DocumentID)
	return nil
}
