// cmd/docqa/main.go
package main

import (
	cmd "github.com/mwiater/docqa/internal/cli"
)

// main starts the docqa CLI by delegating to the cobra root command.
func main() {
	cmd.Execute()
}
