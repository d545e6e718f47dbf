// Package memory implements the room store in process memory.
//
// It is used for tests and for running the server without a database. A
// single mutex serializes commits, so the version check and log append are
// trivially atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/journal"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
)

type room struct {
	state    *state.GameState
	log      []journal.Entry
	byIntent map[string]int
}

// Store is an in-memory storage.Store.
type Store struct {
	storage.Observers

	mu    sync.Mutex
	rooms map[string]*room
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{rooms: make(map[string]*room)}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CreateRoom stores the initial snapshot for a room.
func (s *Store) CreateRoom(ctx context.Context, st *state.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st == nil || strings.TrimSpace(st.RoomID) == "" {
		return fmt.Errorf("room id is required")
	}
	s.mu.Lock()
	if _, ok := s.rooms[st.RoomID]; ok {
		s.mu.Unlock()
		return storage.ErrRoomExists
	}
	s.rooms[st.RoomID] = &room{state: st.Clone(), byIntent: make(map[string]int)}
	s.mu.Unlock()

	s.Notify(st.RoomID, st)
	return nil
}

// GetState returns a copy of the current snapshot.
func (s *Store) GetState(ctx context.Context, roomID string) (*state.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.state.Clone(), nil
}

// Commit replaces the snapshot and appends the entry if the version matches.
func (s *Store) Commit(ctx context.Context, c storage.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.State == nil {
		return fmt.Errorf("commit state is required")
	}
	s.mu.Lock()
	r, ok := s.rooms[c.RoomID]
	if !ok {
		s.mu.Unlock()
		return storage.ErrNotFound
	}
	if r.state.Version != c.ExpectedVersion {
		s.mu.Unlock()
		return storage.ErrConflict
	}
	if n := len(r.log); n > 0 && r.log[n-1].ActionID >= c.Entry.ActionID {
		s.mu.Unlock()
		return storage.ErrConflict
	}
	if c.Entry.IntentID != "" {
		if _, taken := r.byIntent[c.Entry.IntentID]; taken {
			s.mu.Unlock()
			return storage.ErrConflict
		}
		r.byIntent[c.Entry.IntentID] = len(r.log)
	}
	r.state = c.State.Clone()
	r.log = append(r.log, c.Entry)
	s.mu.Unlock()

	s.Notify(c.RoomID, c.State)
	return nil
}

// ListEntries returns entries after afterActionID in ascending order.
func (s *Store) ListEntries(ctx context.Context, roomID string, afterActionID int64, limit int) ([]journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return []journal.Entry{}, nil
	}
	start := sort.Search(len(r.log), func(i int) bool { return r.log[i].ActionID > afterActionID })
	end := min(start+limit, len(r.log))
	out := make([]journal.Entry, end-start)
	copy(out, r.log[start:end])
	return out, nil
}

// GetEntryByIntentID returns the entry recorded for an idempotency key.
func (s *Store) GetEntryByIntentID(ctx context.Context, roomID, intentID string) (journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return journal.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok || intentID == "" {
		return journal.Entry{}, storage.ErrNotFound
	}
	idx, ok := r.byIntent[intentID]
	if !ok {
		return journal.Entry{}, storage.ErrNotFound
	}
	return r.log[idx], nil
}

// ListRoomIDs returns every room id in ascending order.
func (s *Store) ListRoomIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
