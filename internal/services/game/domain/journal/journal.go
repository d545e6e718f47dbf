// Package journal defines the append-only, hash-chained action log and the
// checks that prove a room's history is intact.
package journal

import (
	"errors"
	"fmt"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/reducer"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Entry is one applied intent. PrevHash is the hash of the state the reducer
// read; NextHash is the hash of the state it produced.
type Entry struct {
	RoomID         string        `json:"roomId"`
	ActionID       int64         `json:"actionId"`
	IntentID       string        `json:"intentId,omitempty"`
	Intent         intent.Intent `json:"intent"`
	PrevHash       string        `json:"prevHash"`
	NextHash       string        `json:"nextHash"`
	Seed           int64         `json:"seed"`
	Timestamp      int64         `json:"timestamp"`
	Signature      string        `json:"signature,omitempty"`
	SignatureKeyID string        `json:"signatureKeyId,omitempty"`
}

// Env rebuilds the reducer environment the entry was produced with.
func (e Entry) Env() reducer.Env {
	return reducer.Env{ActionID: e.ActionID, Seed: e.Seed, Now: e.Timestamp}
}

// NewEntry records the transition from prev to next.
func NewEntry(roomID string, in intent.Intent, prev, next *state.GameState, env reducer.Env) Entry {
	return Entry{
		RoomID:    roomID,
		ActionID:  env.ActionID,
		IntentID:  in.ID,
		Intent:    in,
		PrevHash:  prev.Hash,
		NextHash:  next.Hash,
		Seed:      env.Seed,
		Timestamp: env.Now,
	}
}

var (
	// ErrActionGap indicates a missing or repeated action id.
	ErrActionGap = errors.New("action ids are not gapless")
	// ErrChainBroken indicates prevHash does not match the previous nextHash.
	ErrChainBroken = errors.New("hash chain broken")
	// ErrReplayMismatch indicates replay produced a different state hash.
	ErrReplayMismatch = errors.New("replay diverged from recorded hash")
	// ErrBadSignature indicates an entry signature failed verification.
	ErrBadSignature = errors.New("entry signature invalid")
)

// SignatureVerifier checks an entry signature over its next hash.
type SignatureVerifier interface {
	VerifyChainHash(roomID, chainHash, signature, keyID string) error
}

// VerifyChain checks that entries start right after afterActionID with
// prevHash equal to startHash, are gapless, and chain hash to hash. When
// verifier is non-nil every signature is checked too.
func VerifyChain(entries []Entry, afterActionID int64, startHash string, verifier SignatureVerifier) error {
	expectedID := afterActionID + 1
	expectedPrev := startHash
	for _, entry := range entries {
		if entry.ActionID != expectedID {
			return fmt.Errorf("%w: expected action %d, found %d", ErrActionGap, expectedID, entry.ActionID)
		}
		if entry.PrevHash != expectedPrev {
			return fmt.Errorf("%w at action %d: prevHash %s, expected %s", ErrChainBroken, entry.ActionID, entry.PrevHash, expectedPrev)
		}
		if verifier != nil {
			if err := verifier.VerifyChainHash(entry.RoomID, entry.NextHash, entry.Signature, entry.SignatureKeyID); err != nil {
				return fmt.Errorf("%w at action %d: %v", ErrBadSignature, entry.ActionID, err)
			}
		}
		expectedID++
		expectedPrev = entry.NextHash
	}
	return nil
}

// Replay re-runs every entry through r starting from initial and checks that
// each produced hash matches the recorded nextHash. It returns the final state.
func Replay(r reducer.Reducer, initial *state.GameState, entries []Entry) (*state.GameState, error) {
	if initial == nil {
		return nil, fmt.Errorf("initial state is required")
	}
	if err := VerifyChain(entries, initial.LastAppliedID, initial.Hash, nil); err != nil {
		return nil, err
	}
	current := initial
	for _, entry := range entries {
		result, err := r.Apply(current, entry.Intent, entry.Env())
		if err != nil {
			return nil, fmt.Errorf("%w at action %d: reducer rejected intent: %v", ErrReplayMismatch, entry.ActionID, err)
		}
		if !result.Changed {
			return nil, fmt.Errorf("%w at action %d: intent was a no-op", ErrReplayMismatch, entry.ActionID)
		}
		if result.State.Hash != entry.NextHash {
			return nil, fmt.Errorf("%w at action %d: got %s, recorded %s", ErrReplayMismatch, entry.ActionID, result.State.Hash, entry.NextHash)
		}
		current = result.State
	}
	return current, nil
}
