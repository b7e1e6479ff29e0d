// Package main is the entry point of the localhtml command.
package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-localhtml/cmd/localhtml/commands"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := commands.NewRoot(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
