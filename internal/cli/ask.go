package docqa

import (
	"strings"

	"github.com/spf13/cobra"
)

// askCmd answers a single question from the command line.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed document",
	Long:  `The 'ask' command runs retrieval, generation, evaluation and localization for one question and prints the result.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dump, _ := cmd.Flags().GetBool("dump")
		return runAsk(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), dump)
	},
}

func init() {
	askCmd.Flags().Bool("dump", false, "print the full pipeline state, including the transcript")
	rootCmd.AddCommand(askCmd)
}
