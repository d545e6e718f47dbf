package reducer

import (
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// payRent moves rent from the actor to an owner. Partial payment is never
// allowed: a payer who cannot cover the full amount is rejected.
func payRent(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	payer, err := actor(s, in, true)
	if err != nil {
		return false, err
	}
	payload, err := intent.Decode[intent.RentPayload](in)
	if err != nil {
		return false, err
	}

	var (
		recipientID string
		amount      int
	)
	if payload.PropertyID != "" {
		recipientID, amount, err = computedRent(s, payload.PropertyID)
		if err != nil {
			return false, err
		}
	} else {
		recipientID, amount = payload.ToPlayerID, payload.Amount
	}

	if recipientID == payer.UserID {
		return false, illegal(ReasonInvalidTarget, "player %s cannot pay rent to themself", payer.UserID)
	}
	recipient := s.Player(recipientID)
	if recipient == nil {
		return false, illegal(ReasonUnknownTarget, "player %s is not in this room", recipientID)
	}
	if amount <= 0 {
		return false, illegal(ReasonNoRentDue, "no rent due")
	}
	if payer.Money < amount {
		return false, illegal(ReasonInsufficientFunds, "rent is %d, player has %d", amount, payer.Money)
	}

	payer.Money -= amount
	recipient.Money += amount
	return true, nil
}

func computedRent(s *state.GameState, propertyID string) (string, int, error) {
	sq, ok := board.Lookup(propertyID)
	if !ok {
		return "", 0, illegal(ReasonUnknownProperty, "unknown property %s", propertyID)
	}
	prop := s.Properties[sq.ID]
	if prop.Owner == "" {
		return "", 0, illegal(ReasonUnowned, "%s has no owner", sq.ID)
	}

	switch sq.Kind {
	case board.KindTomb:
		full := ownsGroup(s, prop.Owner, sq.Group)
		return prop.Owner, board.TombRent(sq, prop.Graveyards, prop.HasCrypt, full), nil
	case board.KindDepot:
		return prop.Owner, board.DepotRent(ownedInGroup(s, prop.Owner, sq.Group)), nil
	case board.KindUtility:
		total := 0
		if s.LastDiceRoll != nil {
			total = s.LastDiceRoll.Total
		}
		return prop.Owner, board.UtilityRent(ownedInGroup(s, prop.Owner, sq.Group), total), nil
	default:
		return "", 0, illegal(ReasonUnknownProperty, "%s does not charge rent", sq.ID)
	}
}

// useStealCard takes up to the requested amount from a target, never more
// than the target holds, and spends exactly one card.
func useStealCard(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	thief, err := actor(s, in, true)
	if err != nil {
		return false, err
	}
	payload, err := intent.Decode[intent.StealPayload](in)
	if err != nil {
		return false, err
	}
	if payload.TargetID == thief.UserID {
		return false, illegal(ReasonInvalidTarget, "player %s cannot steal from themself", thief.UserID)
	}
	target := s.Player(payload.TargetID)
	if target == nil {
		return false, illegal(ReasonUnknownTarget, "player %s is not in this room", payload.TargetID)
	}
	if thief.StealCards <= 0 {
		return false, illegal(ReasonNoCardsAvailable, "player %s has no steal cards", thief.UserID)
	}

	amount := min(payload.Amount, target.Money)
	target.Money -= amount
	thief.Money += amount
	thief.StealCards--
	return true, nil
}
