package state

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/dice"
)

func sampleState() *GameState {
	s := New("room-1")
	s.Players = []Player{
		{UserID: "a", Name: "Ana", Token: "ghost", IsHost: true, Money: 1400, Properties: []string{"t1"}, StealCards: 1},
		{UserID: "b", Name: "Bo", Token: "bat", Money: 1500, Properties: []string{}, StealCards: 1},
	}
	s.Properties["t1"] = PropertyState{Owner: "a", Graveyards: 2}
	s.LastDiceRoll = &dice.Pair{First: 2, Second: 3, Total: 5}
	s.DiceValues = []int{2, 3}
	s.GameStarted = true
	s.Version = 4
	s.LastAppliedID = 4
	s.Hash = MustHash(s)
	return s
}

func TestNewStateHasAllProperties(t *testing.T) {
	s := New("room-1")
	if len(s.Properties) != 28 {
		t.Fatalf("expected 28 properties, got %d", len(s.Properties))
	}
	if s.Version != 0 || s.LastAppliedID != 0 || s.GameStarted {
		t.Fatalf("unexpected initial counters %+v", s)
	}
	if err := s.VerifyHash(); err != nil {
		t.Fatalf("VerifyHash: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := sampleState()
	c := s.Clone()
	if !reflect.DeepEqual(s, c) {
		t.Fatal("expected clone to equal original")
	}

	c.Players[0].Properties[0] = "t2"
	c.Players[1].Money = 0
	c.Properties["t1"] = PropertyState{}
	c.DiceValues[0] = 6
	c.LastDiceRoll.Total = 12

	if s.Players[0].Properties[0] != "t1" || s.Players[1].Money != 1500 {
		t.Fatal("clone shares player data")
	}
	if s.Properties["t1"].Owner != "a" {
		t.Fatal("clone shares property map")
	}
	if s.DiceValues[0] != 2 || s.LastDiceRoll.Total != 5 {
		t.Fatal("clone shares dice data")
	}
}

func TestHashIgnoresHashFieldAndTracksContent(t *testing.T) {
	s := sampleState()
	before := MustHash(s)
	s.Hash = "garbage"
	if MustHash(s) != before {
		t.Fatal("hash should not depend on the stored hash")
	}
	s.Players[1].Money--
	if MustHash(s) == before {
		t.Fatal("hash should change with content")
	}
}

func TestHashSurvivesJSONRoundTrip(t *testing.T) {
	s := sampleState()
	payload, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded GameState
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := decoded.VerifyHash(); err != nil {
		t.Fatalf("VerifyHash after round trip: %v", err)
	}
}

func TestPlayerLookup(t *testing.T) {
	s := sampleState()
	if s.PlayerIndex("b") != 1 || s.PlayerIndex("zed") != -1 {
		t.Fatal("unexpected PlayerIndex results")
	}
	if p := s.Player("a"); p == nil || !p.Owns("t1") {
		t.Fatal("expected player a to own t1")
	}
	if s.CurrentPlayer().UserID != "a" {
		t.Fatal("expected player a to hold the turn")
	}
}

func TestCheckInvariants(t *testing.T) {
	if err := sampleState().CheckInvariants(); err != nil {
		t.Fatalf("expected valid sample, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*GameState)
	}{
		{"turn out of range", func(s *GameState) { s.CurrentTurn = 2 }},
		{"negative money", func(s *GameState) { s.Players[1].Money = -1 }},
		{"two hosts", func(s *GameState) { s.Players[1].IsHost = true }},
		{"owner not listing", func(s *GameState) { s.Properties["t2"] = PropertyState{Owner: "b"} }},
		{"listing without owner", func(s *GameState) { s.Players[1].Properties = []string{"t3"} }},
		{"shared ownership", func(s *GameState) { s.Players[1].Properties = []string{"t1"} }},
		{"crypt with graveyards", func(s *GameState) { s.Properties["t1"] = PropertyState{Owner: "a", Graveyards: 1, HasCrypt: true} }},
		{"dice face out of range", func(s *GameState) { s.LastDiceRoll = &dice.Pair{First: 7, Second: 1, Total: 8} }},
		{"dice total mismatch", func(s *GameState) { s.LastDiceRoll = &dice.Pair{First: 2, Second: 2, Total: 5, IsDoubles: true} }},
	}
	for _, tc := range tests {
		s := sampleState()
		tc.mutate(s)
		if err := s.CheckInvariants(); err == nil {
			t.Fatalf("%s: expected invariant violation", tc.name)
		}
	}
}
