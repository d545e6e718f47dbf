// Package state holds the authoritative snapshot of one room.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/dice"
)

// GameState is the canonical snapshot of one match.
type GameState struct {
	RoomID        string                   `json:"roomId"`
	Players       []Player                 `json:"players"`
	Properties    map[string]PropertyState `json:"properties"`
	CurrentTurn   int                      `json:"currentTurn"`
	DiceValues    []int                    `json:"diceValues"`
	LastDiceRoll  *dice.Pair               `json:"lastDiceRoll"`
	HasRolled     bool                     `json:"hasRolled"`
	GameStarted   bool                     `json:"gameStarted"`
	Version       int64                    `json:"version"`
	LastAppliedID int64                    `json:"lastAppliedId"`
	// LastUpdated is unix milliseconds of the last applied intent.
	LastUpdated int64  `json:"lastUpdated"`
	Hash        string `json:"hash"`
}

// Player is one participant in a room.
type Player struct {
	UserID             string   `json:"userId"`
	Name               string   `json:"name"`
	Token              string   `json:"token"`
	IsHost             bool     `json:"isHost"`
	Position           int      `json:"position"`
	Money              int      `json:"money"`
	Properties         []string `json:"properties"`
	Bankrupt           bool     `json:"bankrupt"`
	ConsecutiveDoubles int      `json:"consecutiveDoubles"`
	StealCards         int      `json:"stealCards"`
}

// Owns reports whether the player holds propertyID.
func (p Player) Owns(propertyID string) bool {
	return slices.Contains(p.Properties, propertyID)
}

// PropertyState tracks ownership and development of one purchasable square.
type PropertyState struct {
	Owner      string `json:"owner,omitempty"`
	Graveyards int    `json:"graveyards"`
	HasCrypt   bool   `json:"hasCrypt"`
}

// New returns the version-0 state for a freshly created room.
func New(roomID string) *GameState {
	s := &GameState{
		RoomID:     roomID,
		Players:    []Player{},
		Properties: make(map[string]PropertyState),
	}
	for _, id := range board.PropertyIDs() {
		s.Properties[id] = PropertyState{}
	}
	s.Hash = MustHash(s)
	return s
}

// Clone returns a deep copy of s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Properties = slices.Clone(p.Properties)
		out.Players[i] = p
	}
	if s.Properties != nil {
		out.Properties = make(map[string]PropertyState, len(s.Properties))
		for id, prop := range s.Properties {
			out.Properties[id] = prop
		}
	}
	out.DiceValues = slices.Clone(s.DiceValues)
	if s.LastDiceRoll != nil {
		roll := *s.LastDiceRoll
		out.LastDiceRoll = &roll
	}
	return &out
}

// PlayerIndex returns the index of userID in Players, or -1.
func (s *GameState) PlayerIndex(userID string) int {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Player returns a pointer into Players for userID, or nil.
func (s *GameState) Player(userID string) *Player {
	if idx := s.PlayerIndex(userID); idx >= 0 {
		return &s.Players[idx]
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil before anyone joins.
func (s *GameState) CurrentPlayer() *Player {
	if s.CurrentTurn < 0 || s.CurrentTurn >= len(s.Players) {
		return nil
	}
	return &s.Players[s.CurrentTurn]
}

// ComputeHash returns the hex SHA-256 of the canonical JSON encoding of s
// with the Hash field blanked. Map keys are sorted by encoding/json.
func ComputeHash(s *GameState) (string, error) {
	if s == nil {
		return "", fmt.Errorf("state is required")
	}
	shadow := *s
	shadow.Hash = ""
	payload, err := json.Marshal(&shadow)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is ComputeHash for states known to be encodable.
func MustHash(s *GameState) string {
	hash, err := ComputeHash(s)
	if err != nil {
		panic(err)
	}
	return hash
}

// VerifyHash reports whether the stored hash matches the content.
func (s *GameState) VerifyHash() error {
	hash, err := ComputeHash(s)
	if err != nil {
		return err
	}
	if hash != s.Hash {
		return fmt.Errorf("state hash mismatch: stored %s, computed %s", s.Hash, hash)
	}
	return nil
}
