package storage

import (
	"context"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// ErrNotFound indicates a requested room or log entry is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConflict indicates a commit lost an optimistic version race. The caller
// should re-read and retry.
var ErrConflict = apperrors.Rule(apperrors.CodeConcurrencyConflict, "VersionConflict", "snapshot version changed")

// ErrRoomExists indicates CreateRoom was called for an existing room.
var ErrRoomExists = apperrors.Rule(apperrors.CodeConcurrencyConflict, "RoomExists", "room already exists")

// Commit is one atomic snapshot replacement plus log append.
type Commit struct {
	RoomID string
	// ExpectedVersion is the version of the snapshot the reducer read.
	ExpectedVersion int64
	State           *state.GameState
	Entry           journal.Entry
}

// StateStore persists room snapshots and their action logs.
type StateStore interface {
	// CreateRoom stores the initial snapshot. Returns ErrRoomExists if present.
	CreateRoom(ctx context.Context, s *state.GameState) error
	// GetState returns the current snapshot or ErrNotFound.
	GetState(ctx context.Context, roomID string) (*state.GameState, error)
	// Commit replaces the snapshot and appends the entry in one transaction.
	// Returns ErrConflict when the stored version differs from
	// ExpectedVersion or the entry's action id or intent id is taken.
	Commit(ctx context.Context, c Commit) error
}

// LogStore reads the append-only action log.
type LogStore interface {
	// ListEntries returns entries with action id greater than afterActionID,
	// ordered ascending, at most limit of them.
	ListEntries(ctx context.Context, roomID string, afterActionID int64, limit int) ([]journal.Entry, error)
	// GetEntryByIntentID returns the entry recorded for an idempotency key.
	GetEntryByIntentID(ctx context.Context, roomID, intentID string) (journal.Entry, error)
}

// Store is the full persistence surface the pipeline needs.
type Store interface {
	StateStore
	LogStore
	// ListRoomIDs returns every room id, ordered ascending.
	ListRoomIDs(ctx context.Context) ([]string, error)
	Close() error
}

// CommitObserver is told about every committed snapshot, after the commit
// and outside any store lock. It must not block.
type CommitObserver func(roomID string, s *state.GameState)
