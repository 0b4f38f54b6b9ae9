package docqa

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mwiater/docqa/internal/tui"
)

var startChat = tui.Start

// chatCmd represents the 'chat' command.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long:  `The 'chat' command opens a terminal UI for asking questions about the indexed document.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		agent, err := newAgent()
		if err != nil {
			return err
		}
		defer agent.Close()
		return startChat(ctx, agent)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
