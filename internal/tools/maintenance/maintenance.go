// Package maintenance audits stored rooms: it re-verifies each action log's
// hash chain and signatures, replays the log through the reducer, and
// compares the result with the stored snapshot.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/reducer"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/integrity"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/sqlite"
)

const logPageSize = 200

// Config holds maintenance command configuration.
type Config struct {
	RoomID      string
	RoomIDs     string
	DBPath      string        `env:"CRYPTOPOLY_GAME_DB_PATH"`
	Timeout     time.Duration `env:"CRYPTOPOLY_MAINTENANCE_TIMEOUT" envDefault:"2m"`
	WarningsCap int
	JSONOutput  bool
	// RequireSignatures fails rooms with unsigned entries when no keyring
	// is configured to check them.
	RequireSignatures bool
}

type envConfig struct {
	DBPath  string        `env:"CRYPTOPOLY_GAME_DB_PATH"`
	Timeout time.Duration `env:"CRYPTOPOLY_MAINTENANCE_TIMEOUT" envDefault:"2m"`
}

// ParseConfig parses environment defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:      envCfg.DBPath,
		Timeout:     envCfg.Timeout,
		WarningsCap: 25,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "game.db")
	}

	fs.StringVar(&cfg.RoomID, "room-id", "", "room ID to check (default: every room)")
	fs.StringVar(&cfg.RoomIDs, "room-ids", "", "comma-separated room IDs to check")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the game sqlite database (default: CRYPTOPOLY_GAME_DB_PATH or data/game.db)")
	fs.IntVar(&cfg.WarningsCap, "warnings-cap", cfg.WarningsCap, "max warnings to print (0 = no limit)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.BoolVar(&cfg.RequireSignatures, "require-signatures", false, "fail rooms whose entries are unsigned")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if cfg.RoomID != "" && cfg.RoomIDs != "" {
		return errors.New("-room-id cannot be combined with -room-ids")
	}
	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	keyring, err := integrity.KeyringFromEnv()
	switch {
	case errors.Is(err, integrity.ErrNotConfigured):
		keyring = nil
	case err != nil:
		_ = store.Close()
		return err
	}
	var verifier journal.SignatureVerifier
	if keyring != nil {
		verifier = keyring
	}
	return runWithDeps(ctx, cfg, store, verifier, out, errOut)
}

// runWithDeps contains the core maintenance logic with injectable dependencies.
// It owns the lifecycle of the store (closing it on return).
func runWithDeps(ctx context.Context, cfg Config, store closableRoomSource, verifier journal.SignatureVerifier, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close store: %v\n", err)
		}
	}()

	ids, err := resolveRoomIDs(ctx, store, cfg.RoomID, cfg.RoomIDs)
	if err != nil {
		return err
	}

	options := checkOptions{
		Verifier:          verifier,
		RequireSignatures: cfg.RequireSignatures,
	}
	failed := 0
	for _, id := range ids {
		result := checkRoom(ctx, store, id, options)
		result.Warnings, result.WarningsTotal = capWarnings(result.Warnings, cfg.WarningsCap)
		if cfg.JSONOutput {
			outputJSON(out, errOut, result)
		} else {
			prefix := ""
			if len(ids) > 1 {
				prefix = fmt.Sprintf("[%s] ", id)
			}
			printResult(out, errOut, result, prefix)
		}
		if result.ExitCode != 0 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rooms failed integrity checks", failed, len(ids))
	}
	return nil
}

type checkOptions struct {
	Verifier          journal.SignatureVerifier
	RequireSignatures bool
}

// roomReport summarizes one room's audit.
type roomReport struct {
	Entries          int    `json:"entries"`
	UnsignedEntries  int    `json:"unsigned_entries"`
	SignaturesVerified bool   `json:"signatures_verified"`
	SnapshotVersion  int64  `json:"snapshot_version"`
	SnapshotHash     string `json:"snapshot_hash"`
	ReplayHash       string `json:"replay_hash"`
	Match            bool   `json:"match"`
}

type runResult struct {
	RoomID        string      `json:"room_id"`
	Report        *roomReport `json:"report,omitempty"`
	Warnings      []string    `json:"warnings,omitempty"`
	WarningsTotal int         `json:"warnings_total,omitempty"`
	Error         string      `json:"error,omitempty"`
	ExitCode      int         `json:"-"`
}

func checkRoom(ctx context.Context, store roomSource, roomID string, options checkOptions) runResult {
	result := runResult{RoomID: roomID}
	fail := func(format string, args ...any) runResult {
		result.Error = fmt.Sprintf(format, args...)
		result.ExitCode = 1
		return result
	}

	snapshot, err := store.GetState(ctx, roomID)
	if err != nil {
		return fail("load snapshot: %v", err)
	}
	entries, err := loadEntries(ctx, store, roomID)
	if err != nil {
		return fail("load log: %v", err)
	}

	report := &roomReport{
		Entries:         len(entries),
		SnapshotVersion: snapshot.Version,
		SnapshotHash:    snapshot.Hash,
	}
	result.Report = report

	for _, entry := range entries {
		if entry.Signature == "" {
			report.UnsignedEntries++
		}
	}
	if report.UnsignedEntries > 0 {
		msg := fmt.Sprintf("%d of %d entries are unsigned", report.UnsignedEntries, len(entries))
		if options.RequireSignatures {
			return fail("%s", msg)
		}
		result.Warnings = append(result.Warnings, msg)
	}

	initial := state.New(roomID)
	verifier := options.Verifier
	if report.UnsignedEntries > 0 {
		// Mixed logs cannot be checked entry by entry; unsigned ones were
		// written before signing was enabled.
		verifier = nil
	}
	if err := journal.VerifyChain(entries, initial.LastAppliedID, initial.Hash, verifier); err != nil {
		return fail("verify chain: %v", err)
	}
	report.SignaturesVerified = verifier != nil && len(entries) > 0
	if options.Verifier == nil && len(entries) > 0 {
		result.Warnings = append(result.Warnings, "no log keyring configured; signatures not checked")
	}

	replayed, err := journal.Replay(reducer.Default, initial, entries)
	if err != nil {
		return fail("replay: %v", err)
	}
	report.ReplayHash = replayed.Hash
	report.Match = replayed.Hash == snapshot.Hash && replayed.Version == snapshot.Version

	if err := snapshot.VerifyHash(); err != nil {
		return fail("snapshot: %v", err)
	}
	if err := snapshot.CheckInvariants(); err != nil {
		return fail("snapshot invariants: %v", err)
	}
	if !report.Match {
		return fail("snapshot diverges from replay: version %d hash %s, replay version %d hash %s",
			snapshot.Version, snapshot.Hash, replayed.Version, replayed.Hash)
	}
	return result
}

func loadEntries(ctx context.Context, store roomSource, roomID string) ([]journal.Entry, error) {
	var all []journal.Entry
	var after int64
	for {
		page, err := store.ListEntries(ctx, roomID, after, logPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < logPageSize {
			return all, nil
		}
		after = page[len(page)-1].ActionID
	}
}

func resolveRoomIDs(ctx context.Context, store roomSource, singleID, list string) ([]string, error) {
	if singleID != "" {
		return []string{singleID}, nil
	}
	if list != "" {
		ids := splitCSV(list)
		if len(ids) == 0 {
			return nil, fmt.Errorf("-room-ids must contain at least one room id")
		}
		return ids, nil
	}
	ids, err := store.ListRoomIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return ids, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	output := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		output = append(output, trimmed)
	}
	return output
}

func capWarnings(warnings []string, limit int) ([]string, int) {
	total := len(warnings)
	if limit == 0 || total <= limit {
		return warnings, total
	}
	return warnings[:limit], total
}

func outputJSON(out io.Writer, errOut io.Writer, result runResult) {
	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}

func printResult(out io.Writer, errOut io.Writer, result runResult, prefix string) {
	if result.Error != "" {
		fmt.Fprintf(errOut, "%sError: %s\n", prefix, result.Error)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(errOut, "%sWarning: %s\n", prefix, warning)
	}
	if result.WarningsTotal > len(result.Warnings) {
		fmt.Fprintf(errOut, "%sWarning: %d more warnings suppressed\n", prefix, result.WarningsTotal-len(result.Warnings))
	}
	if result.Report == nil {
		return
	}
	r := result.Report
	fmt.Fprintf(out, "%sEntries: %d (unsigned %d, signatures verified %t)\n", prefix, r.Entries, r.UnsignedEntries, r.SignaturesVerified)
	fmt.Fprintf(out, "%sSnapshot: version %d hash %s\n", prefix, r.SnapshotVersion, r.SnapshotHash)
	fmt.Fprintf(out, "%sReplay match: %t\n", prefix, r.Match)
}

func openStore(ctx context.Context, path string) (*sqlite.Store, error) {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	// Auditing must not create an empty database.
	if _, err := os.Stat(cleanPath); err != nil {
		return nil, fmt.Errorf("open game store: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := sqlite.Open(ctx, cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open game store: %w", err)
	}
	return store, nil
}
