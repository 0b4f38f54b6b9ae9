package docqa

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// runListCommands prints the command tree in a two-column layout.
func runListCommands(out io.Writer, root *cobra.Command) {
	commandData := collectCommandData(root, "", "")

	maxPathLength := 0
	for _, data := range commandData {
		if len(data.path) > maxPathLength {
			maxPathLength = len(data.path)
		}
	}

	fmt.Fprintln(out, "Commands and Subcommands:")
	for _, data := range commandData {
		if strings.Contains(data.path, "completion") || strings.Contains(data.path, " help") {
			continue
		}
		fmt.Fprintf(out, "  %s%s%s\n", data.path, strings.Repeat(" ", maxPathLength-len(data.path)+2), data.description)
	}
}

// commandInfo holds the path and description of a command for display.
type commandInfo struct {
	path        string
	description string
}

// collectCommandData walks the command tree and returns a flattened slice of
// path/description pairs.
func collectCommandData(cmd *cobra.Command, currentPath string, indent string) []commandInfo {
	fullPath := cmd.Name()
	if currentPath != "" {
		fullPath = currentPath + " " + cmd.Name()
	}

	allData := []commandInfo{{path: indent + fullPath, description: cmd.Short}}
	for _, subCmd := range cmd.Commands() {
		allData = append(allData, collectCommandData(subCmd, fullPath, indent+"  ")...)
	}
	return allData
}
