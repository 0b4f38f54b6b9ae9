package docqa

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/docqa/internal/rag"
)

// ragPreviewCmd previews retrieval for a query.
var ragPreviewCmd = &cobra.Command{
	Use:   "preview <query>",
	Short: "Preview the passages retrieved for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		return rag.RunPreviewCommand(cmd.Context(), cmd.OutOrStdout(), cfg, args)
	},
}

func init() {
	ragCmd.AddCommand(ragPreviewCmd)
}
