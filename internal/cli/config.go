package docqa

import "github.com/spf13/cobra"

// configCmd represents the 'config' command group.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	Long:  `The 'config' command groups subcommands that display or update the JSON configuration file.`,
}

// configShowCmd prints the merged configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON config is loaded properly and overridden by environment and flags accordingly.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runShowConfig(cmd.OutOrStdout())
	},
}

// configSetCmd validates and persists key=value assignments.
var configSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Update config keys in the config file",
	Long:  `Values are parsed as JSON when possible (numbers, booleans, arrays, objects) and as plain strings otherwise. The merged document is validated before it is written.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetConfig(cmd.OutOrStdout(), cfgFile, args)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
