// Package play is a command-line player for a running game server.
package play

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/cryptopoly/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/cryptopoly/internal/platform/grpc"
	"github.com/louisbranch/cryptopoly/internal/platform/timeouts"
	"github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/game"
	"github.com/louisbranch/cryptopoly/internal/services/game/auth"
	"github.com/louisbranch/cryptopoly/internal/services/game/client"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds play command configuration.
type Config struct {
	ServerURL      string        `env:"CRYPTOPOLY_PLAY_SERVER_URL" envDefault:"http://localhost:8080"`
	GRPCAddr       string        `env:"CRYPTOPOLY_PLAY_GRPC_ADDR" envDefault:"localhost:8082"`
	Transport      string        `env:"CRYPTOPOLY_PLAY_TRANSPORT" envDefault:"http"`
	PendingTimeout time.Duration `env:"CRYPTOPOLY_PLAY_PENDING_TIMEOUT" envDefault:"5s"`
	Locale         string        `env:"CRYPTOPOLY_PLAY_LOCALE"`
	Room           string        `env:"CRYPTOPOLY_PLAY_ROOM"`
	Player         string        `env:"CRYPTOPOLY_PLAY_PLAYER"`
	// Args is the command and its operands.
	Args []string
}

const usage = `commands:
  create [room-id]
  join <name>
  start | roll | end
  buy <property-id>
  develop <property-id> <graveyard|crypt>
  rent <property-id>
  pay <player-id> <amount>
  steal <target-id> <amount>
  state | log | watch`

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "HTTP base URL of the game server")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC address of the game server")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport for intents and watch (http|grpc)")
	fs.DurationVar(&cfg.PendingTimeout, "pending-timeout", cfg.PendingTimeout, "How long a prediction may stay unconfirmed")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale for error messages")
	fs.StringVar(&cfg.Room, "room", cfg.Room, "Room ID")
	fs.StringVar(&cfg.Player, "player", cfg.Player, "Player ID")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()
	if len(cfg.Args) == 0 {
		return Config{}, errors.New("a command is required\n" + usage)
	}
	switch cfg.Transport {
	case TransportHTTP, TransportGRPC:
	default:
		return Config{}, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	return cfg, nil
}

// Run executes one command and writes its JSON result to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if len(cfg.Args) == 0 {
		return errors.New("a command is required\n" + usage)
	}
	command, operands := cfg.Args[0], cfg.Args[1:]

	token, err := playerToken(cfg)
	if err != nil {
		return err
	}
	httpClient, err := client.NewHTTP(cfg.ServerURL, client.WithToken(token), client.WithLocale(cfg.Locale))
	if err != nil {
		return err
	}

	switch command {
	case "create":
		roomID := ""
		if len(operands) > 0 {
			roomID = operands[0]
		}
		created, err := httpClient.CreateRoom(ctx, roomID)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"roomId": created})
	case "state":
		if err := requireRoom(cfg); err != nil {
			return err
		}
		current, err := httpClient.State(ctx, cfg.Room)
		if err != nil {
			return err
		}
		return writeJSON(out, current)
	case "log":
		if err := requireRoom(cfg); err != nil {
			return err
		}
		entries, err := httpClient.Log(ctx, cfg.Room, 0, 0)
		if err != nil {
			return err
		}
		return writeJSON(out, entries)
	}

	if err := requireRoom(cfg); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Player) == "" {
		return errors.New("-player is required")
	}
	transport, closeTransport, err := openTransport(ctx, cfg, httpClient, token)
	if err != nil {
		return err
	}
	defer closeTransport()

	if command == "watch" {
		session := client.NewSession(transport, cfg.Room, cfg.Player,
			client.WithPendingTimeout(cfg.PendingTimeout),
			client.WithOnChange(func(s *state.GameState) {
				if err := writeJSON(out, summarize(s)); err != nil {
					log.Printf("write state: %v", err)
				}
			}),
		)
		return session.Run(ctx)
	}

	t, payload, err := parseAction(command, operands)
	if err != nil {
		return err
	}
	session := client.NewSession(transport, cfg.Room, cfg.Player, client.WithPendingTimeout(cfg.PendingTimeout))
	res, err := session.Do(ctx, t, payload)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

func requireRoom(cfg Config) error {
	if strings.TrimSpace(cfg.Room) == "" {
		return errors.New("-room is required")
	}
	return nil
}

// playerToken issues a token for the player when a shared secret is set.
func playerToken(cfg Config) (string, error) {
	tokenCfg, err := auth.LoadConfigFromEnv(nil)
	if errors.Is(err, auth.ErrNotConfigured) || cfg.Player == "" || cfg.Room == "" {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	tokens, err := auth.NewTokens(tokenCfg)
	if err != nil {
		return "", err
	}
	return tokens.Issue(cfg.Player, cfg.Room)
}

func openTransport(ctx context.Context, cfg Config, httpClient *client.HTTP, token string) (client.Transport, func(), error) {
	if cfg.Transport != TransportGRPC {
		return httpClient, func() {}, nil
	}
	conn, err := platformgrpc.DialWithHealth(ctx, cfg.GRPCAddr, timeouts.GRPCDial, log.Printf)
	if err != nil {
		return nil, nil, err
	}
	grpcClient := game.NewClient(conn, game.WithToken(token), game.WithLocale(cfg.Locale))
	return client.GRPC(grpcClient), func() { _ = conn.Close() }, nil
}

func parseAction(command string, operands []string) (intent.Type, any, error) {
	need := func(n int) error {
		if len(operands) != n {
			return fmt.Errorf("%s takes %d argument(s)\n%s", command, n, usage)
		}
		return nil
	}
	switch command {
	case "join":
		if err := need(1); err != nil {
			return "", nil, err
		}
		return intent.TypeJoinGame, intent.JoinPayload{Name: operands[0]}, nil
	case "start":
		return intent.TypeStartGame, nil, need(0)
	case "roll":
		return intent.TypeRollDice, nil, need(0)
	case "end":
		return intent.TypeEndTurn, nil, need(0)
	case "buy":
		if err := need(1); err != nil {
			return "", nil, err
		}
		return intent.TypePurchaseProperty, intent.PropertyPayload{PropertyID: operands[0]}, nil
	case "develop":
		if err := need(2); err != nil {
			return "", nil, err
		}
		return intent.TypeDevelopProperty, intent.DevelopPayload{PropertyID: operands[0], Kind: operands[1]}, nil
	case "rent":
		if err := need(1); err != nil {
			return "", nil, err
		}
		return intent.TypePayRent, intent.RentPayload{PropertyID: operands[0]}, nil
	case "pay":
		if err := need(2); err != nil {
			return "", nil, err
		}
		amount, err := strconv.Atoi(operands[1])
		if err != nil {
			return "", nil, fmt.Errorf("amount: %w", err)
		}
		return intent.TypePayRent, intent.RentPayload{ToPlayerID: operands[0], Amount: amount}, nil
	case "steal":
		if err := need(2); err != nil {
			return "", nil, err
		}
		amount, err := strconv.Atoi(operands[1])
		if err != nil {
			return "", nil, fmt.Errorf("amount: %w", err)
		}
		return intent.TypeUseStealCard, intent.StealPayload{TargetID: operands[0], Amount: amount}, nil
	default:
		return "", nil, fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

// stateSummary is the compact view printed while watching.
type stateSummary struct {
	Version     int64           `json:"version"`
	CurrentTurn string          `json:"currentTurn,omitempty"`
	HasRolled   bool            `json:"hasRolled"`
	Players     []playerSummary `json:"players"`
}

type playerSummary struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Money    int    `json:"money"`
	Bankrupt bool   `json:"bankrupt,omitempty"`
}

func summarize(s *state.GameState) stateSummary {
	summary := stateSummary{Version: s.Version, HasRolled: s.HasRolled, Players: []playerSummary{}}
	if s.GameStarted {
		if current := s.CurrentPlayer(); current != nil {
			summary.CurrentTurn = current.UserID
		}
	}
	for _, p := range s.Players {
		summary.Players = append(summary.Players, playerSummary{
			ID:       p.UserID,
			Position: p.Position,
			Money:    p.Money,
			Bankrupt: p.Bankrupt,
		})
	}
	return summary
}

func writeJSON(out io.Writer, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
