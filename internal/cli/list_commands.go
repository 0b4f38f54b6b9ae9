package docqa

import "github.com/spf13/cobra"

// commandsCmd prints the available commands and subcommands in a
// hierarchical, indented, two-column format.
var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List all commands and subcommands in two columns",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runListCommands(cmd.OutOrStdout(), rootCmd)
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}
