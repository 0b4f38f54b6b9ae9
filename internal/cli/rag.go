package docqa

import "github.com/spf13/cobra"

// ragCmd groups retrieval utilities.
var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Retrieval utilities",
}

func init() {
	rootCmd.AddCommand(ragCmd)
}
