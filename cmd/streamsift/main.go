// Package main is the entry point for the streamsift application.
package main

import (
	"os"

	"github.com/jmylchreest/streamsift/cmd/streamsift/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
