package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/cryptopoly/internal/services/game/auth"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/integrity"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/memory"
	storagesqlite "github.com/louisbranch/cryptopoly/internal/services/game/storage/sqlite"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config describes one game server.
type Config struct {
	HTTPAddr         string
	GRPCAddr         string
	Storage          string
	DBPath           string
	ApplyMaxAttempts int
	// Keyring signs log entries; nil leaves entries unsigned.
	Keyring *integrity.Keyring
	// Tokens enforces player identity on submissions; nil trusts playerId.
	Tokens *auth.Tokens
}

func openStore(ctx context.Context, cfg Config) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case StorageMemory:
		return memory.New(), nil
	case StorageSQLite, "":
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			path = filepath.Join("data", "game.db")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := storagesqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// LoadSecurityFromEnv loads the optional log keyring and player token
// settings. Missing settings yield nil values and a log line.
func LoadSecurityFromEnv() (*integrity.Keyring, *auth.Tokens, error) {
	keyring, err := integrity.KeyringFromEnv()
	switch {
	case errors.Is(err, integrity.ErrNotConfigured):
		log.Printf("log signing disabled: %v", err)
		keyring = nil
	case err != nil:
		return nil, nil, fmt.Errorf("load log keyring: %w", err)
	}

	tokenCfg, err := auth.LoadConfigFromEnv(nil)
	if errors.Is(err, auth.ErrNotConfigured) {
		log.Printf("player identity checks disabled: %v", err)
		return keyring, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load player tokens: %w", err)
	}
	tokens, err := auth.NewTokens(tokenCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("configure player tokens: %w", err)
	}
	return keyring, tokens, nil
}
