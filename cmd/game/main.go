package main

import (
	"flag"
	"log"
	"os"

	gamecmd "github.com/louisbranch/cryptopoly/internal/cmd/game"
	entrypoint "github.com/louisbranch/cryptopoly/internal/platform/cmd"
)

func main() {
	cfg, err := gamecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := entrypoint.SignalContext(entrypoint.ServiceGame)
	defer stop()

	if err := gamecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
