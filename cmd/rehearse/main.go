// Command rehearse is the command-line companion to the rehearse daemon:
// it migrates and seeds storage, runs the rating event worker, serves MCP
// and prints progress for a user.
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
