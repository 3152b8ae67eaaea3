package main

import (
	"os"

	"github.com/gonkalabs/codeblur/internal/cli"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	os.Exit(cli.Execute())
}
