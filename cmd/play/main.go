// Package main plays cryptopoly from the command line.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/cryptopoly/internal/cmd/play"
	entrypoint "github.com/louisbranch/cryptopoly/internal/platform/cmd"
	"github.com/louisbranch/cryptopoly/internal/platform/config"
)

func main() {
	cfg, err := play.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	ctx, stop := entrypoint.SignalContext(entrypoint.ServicePlay)
	defer stop()

	if err := play.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
