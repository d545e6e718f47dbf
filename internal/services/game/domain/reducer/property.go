package reducer

import (
	"slices"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

func purchaseProperty(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	p, err := actor(s, in, true)
	if err != nil {
		return false, err
	}
	if err := requireTurn(s, p); err != nil {
		return false, err
	}
	payload, err := intent.Decode[intent.PropertyPayload](in)
	if err != nil {
		return false, err
	}
	sq, ok := board.Lookup(payload.PropertyID)
	if !ok {
		return false, illegal(ReasonUnknownProperty, "unknown property %s", payload.PropertyID)
	}
	prop := s.Properties[sq.ID]
	if prop.Owner != "" {
		return false, illegal(ReasonAlreadyOwned, "%s is owned by %s", sq.ID, prop.Owner)
	}
	if p.Money < sq.Price {
		return false, illegal(ReasonInsufficientFunds, "%s costs %d, player has %d", sq.ID, sq.Price, p.Money)
	}

	p.Money -= sq.Price
	prop.Owner = p.UserID
	s.Properties[sq.ID] = prop
	p.Properties = append(p.Properties, sq.ID)
	slices.Sort(p.Properties)
	return true, nil
}

func developProperty(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	p, err := actor(s, in, true)
	if err != nil {
		return false, err
	}
	payload, err := intent.Decode[intent.DevelopPayload](in)
	if err != nil {
		return false, err
	}
	sq, ok := board.Lookup(payload.PropertyID)
	if !ok {
		return false, illegal(ReasonUnknownProperty, "unknown property %s", payload.PropertyID)
	}
	prop := s.Properties[sq.ID]
	if prop.Owner != p.UserID {
		return false, illegal(ReasonNotOwner, "%s is not owned by %s", sq.ID, p.UserID)
	}
	if !sq.Developable() {
		return false, illegal(ReasonNotDevelopable, "%s cannot be developed", sq.ID)
	}
	if !ownsGroup(s, p.UserID, sq.Group) {
		return false, illegal(ReasonIncompleteGroup, "%s does not own all of %s", p.UserID, sq.Group)
	}

	switch payload.Kind {
	case intent.DevelopGraveyard:
		if prop.HasCrypt || prop.Graveyards >= board.MaxGraveyards {
			return false, illegal(ReasonMaxDevelopment, "%s cannot take another graveyard", sq.ID)
		}
		if p.Money < board.GraveyardCost {
			return false, illegal(ReasonInsufficientFunds, "graveyard costs %d, player has %d", board.GraveyardCost, p.Money)
		}
		p.Money -= board.GraveyardCost
		prop.Graveyards++
	case intent.DevelopCrypt:
		if prop.HasCrypt {
			return false, illegal(ReasonAlreadyHasCrypt, "%s already has a crypt", sq.ID)
		}
		if prop.Graveyards != board.MaxGraveyards {
			return false, illegal(ReasonCryptRequiresGraveyards, "%s has %d graveyards", sq.ID, prop.Graveyards)
		}
		if p.Money < board.CryptCost {
			return false, illegal(ReasonInsufficientFunds, "crypt costs %d, player has %d", board.CryptCost, p.Money)
		}
		p.Money -= board.CryptCost
		prop.Graveyards = 0
		prop.HasCrypt = true
	}
	s.Properties[sq.ID] = prop
	return true, nil
}

func ownsGroup(s *state.GameState, userID, group string) bool {
	members := board.GroupMembers(group)
	if len(members) == 0 {
		return false
	}
	for _, id := range members {
		if s.Properties[id].Owner != userID {
			return false
		}
	}
	return true
}

func ownedInGroup(s *state.GameState, userID, group string) int {
	count := 0
	for _, id := range board.GroupMembers(group) {
		if s.Properties[id].Owner == userID {
			count++
		}
	}
	return count
}
