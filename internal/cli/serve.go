package docqa

import "github.com/spf13/cobra"

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload, ask and config API",
	Long:  `The 'serve' command starts the HTTP API: POST /upload, POST /ask, GET|POST /config, GET /metrics and GET /health.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		noWarmup, _ := cmd.Flags().GetBool("no-warmup")
		return runServe(cmd.Context(), addr, !noWarmup)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides listenAddr)")
	serveCmd.Flags().Bool("no-warmup", false, "skip loading the generation model at startup")
	rootCmd.AddCommand(serveCmd)
}
