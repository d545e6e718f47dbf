// Package keygen prints fresh secrets for the game server's log signing key
// and player token secret as environment assignments.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
)

// Secret kinds.
const (
	KindLog   = "log"
	KindToken = "token"
	KindAll   = "all"
)

const (
	logKeyEnv      = "CRYPTOPOLY_GAME_LOG_HMAC_KEY"
	tokenSecretEnv = "CRYPTOPOLY_GAME_PLAYER_TOKEN_SECRET"
)

// Config holds configuration for key generation.
type Config struct {
	Bytes int
	Kind  string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32, Kind: KindAll}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes per secret (default: 32)")
	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "which secret to generate (log|token|all)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the requested secrets and writes them to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	var names []string
	switch cfg.Kind {
	case KindLog:
		names = []string{logKeyEnv}
	case KindToken:
		names = []string{tokenSecretEnv}
	case KindAll, "":
		names = []string{logKeyEnv, tokenSecretEnv}
	default:
		return fmt.Errorf("unknown kind %q", cfg.Kind)
	}

	for _, name := range names {
		buf := make([]byte, cfg.Bytes)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return fmt.Errorf("generate random bytes: %w", err)
		}
		if _, err := fmt.Fprintf(out, "%s=%s\n", name, hex.EncodeToString(buf)); err != nil {
			return err
		}
	}
	return nil
}
