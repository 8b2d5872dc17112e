// Package main provides the entry point for the queryai CLI.
package main

import (
	"os"

	"github.com/rssebambulidde/QueryAI-sub001/cmd/queryai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
