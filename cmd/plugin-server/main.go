// Package main is the entry point for plugin-server.
package main

import (
	"os"

	"github.com/rmitchellscott/stationmaster-plugins/cmd/plugin-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
