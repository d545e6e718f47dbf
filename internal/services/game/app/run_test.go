package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/cryptopoly/internal/platform/grpc"
	gamegrpc "github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/game"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/integrity"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/sqlite"
)

func startServer(t *testing.T, cfg Config) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "127.0.0.1:0"
	}
	if cfg.GRPCAddr == "" {
		cfg.GRPCAddr = "127.0.0.1:0"
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := New(ctx, cfg)
	if err != nil {
		cancel()
		t.Fatalf("new server: %v", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()
	return srv, cancel, serveErr
}

func waitStopped(t *testing.T, serveErr <-chan error) {
	t.Helper()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func createRoom(t *testing.T, httpAddr string) string {
	t.Helper()
	resp, err := http.Post("http://"+httpAddr+"/games", "application/json", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d", resp.StatusCode)
	}
	var body struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return body.RoomID
}

// TestServeStopsOnContext verifies both surfaces serve and stop on cancel.
func TestServeStopsOnContext(t *testing.T) {
	srv, cancel, serveErr := startServer(t, Config{Storage: StorageMemory})
	defer cancel()

	roomID := createRoom(t, srv.HTTPAddr())

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, err := platformgrpc.DialWithHealth(dialCtx, srv.GRPCAddr(), 5*time.Second, t.Logf)
	if err != nil {
		t.Fatalf("dial game server: %v", err)
	}
	defer conn.Close()

	in, err := intent.New(intent.TypeJoinGame, "p1", intent.JoinPayload{Name: "Ana"}, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("new intent: %v", err)
	}
	res, err := gamegrpc.NewClient(conn).SubmitIntent(dialCtx, roomID, in)
	if err != nil {
		t.Fatalf("submit over gRPC: %v", err)
	}
	if !res.Applied || res.Version != 1 {
		t.Fatalf("result = %+v, want applied at version 1", res)
	}

	// The HTTP surface reads the same store.
	resp, err := http.Get("http://" + srv.HTTPAddr() + "/games/" + roomID + "/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	var body struct {
		Version int64 `json:"version"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if body.Version != 1 {
		t.Fatalf("http version = %d, want 1", body.Version)
	}

	cancel()
	waitStopped(t, serveErr)
}

// TestSQLiteStorageSignsEntries ensures a configured keyring signs the log.
func TestSQLiteStorageSignsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "game.db")
	keyring, err := integrity.NewKeyring(map[string][]byte{"k1": []byte("secret")}, "k1")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	srv, cancel, serveErr := startServer(t, Config{Storage: StorageSQLite, DBPath: dbPath, Keyring: keyring})
	defer cancel()

	roomID := createRoom(t, srv.HTTPAddr())
	body := `{"intentId":"join-1","type":"JOIN_GAME","playerId":"p1","payload":{"name":"Ana"},"timestamp":1}`
	resp, err := http.Post("http://"+srv.HTTPAddr()+"/games/"+roomID+"/intent", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	cancel()
	waitStopped(t, serveErr)

	store, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	entries, err := store.ListEntries(context.Background(), roomID, 0, 10)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Signature == "" || entries[0].SignatureKeyID != "k1" {
		t.Fatalf("entry not signed: %+v", entries[0])
	}
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(context.Background(), Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0", Storage: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Fatalf("expected unknown storage error, got %v", err)
	}
}

func TestLoadSecurityFromEnvDefaultsToDisabled(t *testing.T) {
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEYS", "")
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEY", "")
	t.Setenv("CRYPTOPOLY_GAME_PLAYER_TOKEN_SECRET", "")

	keyring, tokens, err := LoadSecurityFromEnv()
	if err != nil {
		t.Fatalf("load security: %v", err)
	}
	if keyring != nil || tokens != nil {
		t.Fatalf("expected nil keyring and tokens, got %v %v", keyring, tokens)
	}
}

func TestLoadSecurityFromEnvConfigured(t *testing.T) {
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEYS", "")
	t.Setenv("CRYPTOPOLY_GAME_LOG_HMAC_KEY", "log-secret")
	t.Setenv("CRYPTOPOLY_GAME_PLAYER_TOKEN_SECRET", "token-secret")

	keyring, tokens, err := LoadSecurityFromEnv()
	if err != nil {
		t.Fatalf("load security: %v", err)
	}
	if keyring == nil || tokens == nil {
		t.Fatal("expected keyring and tokens")
	}
	if keyring.ActiveKeyID() != "v1" {
		t.Fatalf("active key id = %q, want v1", keyring.ActiveKeyID())
	}
}
