package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/cryptopoly/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage/sqlite/migrations"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Store provides a SQLite-backed room store.
type Store struct {
	storage.Observers

	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open opens the SQLite store at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.StateFS, "state"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying SQLite database.
//
// Close is nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateRoom stores the initial snapshot for a room.
func (s *Store) CreateRoom(ctx context.Context, st *state.GameState) error {
	if st == nil || strings.TrimSpace(st.RoomID) == "" {
		return fmt.Errorf("room id is required")
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	now := toMillis(s.now())
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO room_state (room_id, version, last_applied_id, state_hash, state_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.RoomID, st.Version, st.LastAppliedID, st.Hash, payload, now, now,
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrRoomExists
		}
		return unavailable("create room", err)
	}
	s.Notify(st.RoomID, st)
	return nil
}

// GetState returns the current snapshot for a room.
func (s *Store) GetState(ctx context.Context, roomID string) (*state.GameState, error) {
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx, "SELECT state_json FROM room_state WHERE room_id = ?", roomID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get state", err)
	}
	var st state.GameState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("decode state for room %s: %w", roomID, err)
	}
	return &st, nil
}

// ListRoomIDs returns every room id in ascending order.
func (s *Store) ListRoomIDs(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT room_id FROM room_state ORDER BY room_id")
	if err != nil {
		return nil, unavailable("list rooms", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list rooms", err)
	}
	return ids, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
