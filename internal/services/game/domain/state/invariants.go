package state

import (
	"errors"
	"fmt"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/dice"
)

// CheckInvariants returns every structural rule the snapshot violates.
func (s *GameState) CheckInvariants() error {
	var errs []error

	if len(s.Players) > 0 && (s.CurrentTurn < 0 || s.CurrentTurn >= len(s.Players)) {
		errs = append(errs, fmt.Errorf("current turn %d out of range for %d players", s.CurrentTurn, len(s.Players)))
	}
	if len(s.Players) > board.MaxPlayers {
		errs = append(errs, fmt.Errorf("%d players exceeds maximum %d", len(s.Players), board.MaxPlayers))
	}

	hosts := 0
	seen := make(map[string]bool, len(s.Players))
	claimed := make(map[string]string)
	for _, p := range s.Players {
		if seen[p.UserID] {
			errs = append(errs, fmt.Errorf("duplicate player %s", p.UserID))
		}
		seen[p.UserID] = true
		if p.IsHost {
			hosts++
		}
		if p.Money < 0 {
			errs = append(errs, fmt.Errorf("player %s has negative money %d", p.UserID, p.Money))
		}
		if p.StealCards < 0 {
			errs = append(errs, fmt.Errorf("player %s has negative steal cards", p.UserID))
		}
		for _, id := range p.Properties {
			if other, ok := claimed[id]; ok {
				errs = append(errs, fmt.Errorf("property %s claimed by %s and %s", id, other, p.UserID))
			}
			claimed[id] = p.UserID
			if s.Properties[id].Owner != p.UserID {
				errs = append(errs, fmt.Errorf("player %s lists %s owned by %q", p.UserID, id, s.Properties[id].Owner))
			}
		}
	}
	if len(s.Players) > 0 && hosts != 1 {
		errs = append(errs, fmt.Errorf("expected exactly one host, found %d", hosts))
	}

	for id, prop := range s.Properties {
		if prop.Owner != "" && claimed[id] != prop.Owner {
			errs = append(errs, fmt.Errorf("property %s owner %s does not list it", id, prop.Owner))
		}
		if prop.HasCrypt && prop.Graveyards != 0 {
			errs = append(errs, fmt.Errorf("property %s has a crypt and %d graveyards", id, prop.Graveyards))
		}
		if prop.Graveyards < 0 || prop.Graveyards > board.MaxGraveyards {
			errs = append(errs, fmt.Errorf("property %s has %d graveyards", id, prop.Graveyards))
		}
	}

	if roll := s.LastDiceRoll; roll != nil {
		want, err := dice.EvaluatePair(roll.First, roll.Second)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("last dice roll %d,%d: %w", roll.First, roll.Second, err))
		case want != *roll:
			errs = append(errs, fmt.Errorf("last dice roll %+v does not match its faces", *roll))
		}
	}

	return errors.Join(errs...)
}
