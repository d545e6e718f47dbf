// Package main audits stored rooms against their action logs.
package main

import (
	"context"
	"flag"
	"os"

	entrypoint "github.com/louisbranch/cryptopoly/internal/platform/cmd"
	"github.com/louisbranch/cryptopoly/internal/platform/config"
	"github.com/louisbranch/cryptopoly/internal/tools/maintenance"
)

func main() {
	cfg, err := maintenance.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := entrypoint.SignalContext(entrypoint.ServiceMaintenance)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := maintenance.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
