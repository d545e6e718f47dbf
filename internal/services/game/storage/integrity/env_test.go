package integrity

import (
	"errors"
	"testing"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEY", "")
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEYS", "")
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEY_ID", "")
}

func TestKeyringFromEnvRequiresKey(t *testing.T) {
	clearKeyEnv(t)
	if _, err := KeyringFromEnv(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestKeyringFromEnvSingleKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEY", "secret")

	ring, err := KeyringFromEnv()
	if err != nil {
		t.Fatalf("keyring from env: %v", err)
	}
	if ring.ActiveKeyID() != "v1" {
		t.Fatalf("expected default key id v1, got %s", ring.ActiveKeyID())
	}
}

func TestKeyringFromEnvKeySpec(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEYS", "v1=old, v2=new,")
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEY_ID", "v2")

	ring, err := KeyringFromEnv()
	if err != nil {
		t.Fatalf("keyring from env: %v", err)
	}
	if ring.ActiveKeyID() != "v2" {
		t.Fatalf("expected active key v2, got %s", ring.ActiveKeyID())
	}
}

func TestKeyringFromConfigRejectsBadSpec(t *testing.T) {
	for _, spec := range []string{"v1", "=secret", "v1="} {
		if _, err := KeyringFromConfig(Config{Keys: spec, KeyID: "v1"}); err == nil {
			t.Fatalf("expected error for spec %q", spec)
		}
	}
	if _, err := KeyringFromConfig(Config{Keys: "v1=a", KeyID: "v2"}); err == nil {
		t.Fatal("expected error when active key is missing from spec")
	}
}
