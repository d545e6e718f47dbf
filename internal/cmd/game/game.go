// Package game parses game command flags and starts the game server.
package game

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/cryptopoly/internal/platform/cmd"
	server "github.com/louisbranch/cryptopoly/internal/services/game/app"
)

// Config holds game command configuration.
type Config struct {
	HTTPAddr         string `env:"CRYPTOPOLY_GAME_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr         string `env:"CRYPTOPOLY_GAME_GRPC_ADDR" envDefault:":8082"`
	Storage          string `env:"CRYPTOPOLY_GAME_STORAGE" envDefault:"sqlite"`
	DBPath           string `env:"CRYPTOPOLY_GAME_DB_PATH" envDefault:"data/game.db"`
	ApplyMaxAttempts int    `env:"CRYPTOPOLY_GAME_APPLY_MAX_ATTEMPTS" envDefault:"5"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The gRPC listen address")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend (sqlite|memory)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the sqlite database")
	fs.IntVar(&cfg.ApplyMaxAttempts, "apply-max-attempts", cfg.ApplyMaxAttempts, "Commit attempts per intent before reporting a conflict")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game server.
func Run(ctx context.Context, cfg Config) error {
	keyring, tokens, err := server.LoadSecurityFromEnv()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:         cfg.HTTPAddr,
			GRPCAddr:         cfg.GRPCAddr,
			Storage:          cfg.Storage,
			DBPath:           cfg.DBPath,
			ApplyMaxAttempts: cfg.ApplyMaxAttempts,
			Keyring:          keyring,
			Tokens:           tokens,
		})
	})
}
