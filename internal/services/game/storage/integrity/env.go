package integrity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/cryptopoly/internal/platform/config"
)

const defaultKeyID = "v1"

// ErrNotConfigured indicates no signing key was provided.
var ErrNotConfigured = errors.New("log signing key is not configured")

// Config holds the keyring settings.
//
// Keys takes a comma separated list of id=secret pairs and wins over Key.
type Config struct {
	Keys  string `env:"CRYPTOPOLY_GAME_LOG_HMAC_KEYS"`
	Key   string `env:"CRYPTOPOLY_GAME_LOG_HMAC_KEY"`
	KeyID string `env:"CRYPTOPOLY_GAME_LOG_HMAC_KEY_ID" envDefault:"v1"`
}

// KeyringFromEnv loads the keyring from environment variables.
func KeyringFromEnv() (*Keyring, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("parse keyring env: %w", err)
	}
	return KeyringFromConfig(cfg)
}

// KeyringFromConfig builds a keyring. It returns ErrNotConfigured when
// neither Keys nor Key is set.
func KeyringFromConfig(cfg Config) (*Keyring, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		keyID = defaultKeyID
	}

	keySpec := strings.TrimSpace(cfg.Keys)
	if keySpec == "" {
		raw := strings.TrimSpace(cfg.Key)
		if raw == "" {
			return nil, ErrNotConfigured
		}
		return NewKeyring(map[string][]byte{keyID: []byte(raw)}, keyID)
	}

	keys := make(map[string][]byte)
	for _, entry := range strings.Split(keySpec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, value, ok := strings.Cut(entry, "=")
		id, value = strings.TrimSpace(id), strings.TrimSpace(value)
		if !ok || id == "" || value == "" {
			return nil, fmt.Errorf("invalid hmac key entry %q", entry)
		}
		keys[id] = []byte(value)
	}
	return NewKeyring(keys, keyID)
}
