// Command loomctl is loom's CLI entry point: validate a configuration
// file without starting anything, or serve it. Exit codes follow
// spec.md §6: 0 on clean shutdown, 1 on startup failure, 2 on an
// unhandled fatal error while serving.
package main

import (
	"os"

	"github.com/loomkit/loom/cmd/loomctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
