package main

import (
	"fmt"
	"os"

	"helpdesk-kb/cmd/kbctl/commands"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersion(version, commit)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
