package main

import (
	"os"

	"github.com/blackmichael/bluesky-autoposter/internal/cli"
	"github.com/blackmichael/bluesky-autoposter/internal/output"
)

func main() {
	if err := cli.Execute(); err != nil {
		output.PrintError(os.Stderr, "error: %v", err)
		os.Exit(1)
	}
}
