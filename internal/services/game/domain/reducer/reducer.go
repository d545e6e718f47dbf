// Package reducer encodes every game rule as a pure state transition.
//
// Apply never mutates its input. A rejected intent returns an IllegalMove or
// Validation error and no state; an accepted one returns a fresh snapshot
// with version, lastAppliedId, lastUpdated and hash advanced.
package reducer

import (
	"fmt"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/dice"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Rule violation reasons carried by IllegalMove errors.
const (
	ReasonNotYourTurn             = "NotYourTurn"
	ReasonInsufficientFunds       = "InsufficientFunds"
	ReasonAlreadyOwned            = "AlreadyOwned"
	ReasonNotOwner                = "NotOwner"
	ReasonIncompleteGroup         = "IncompleteGroup"
	ReasonNoCardsAvailable        = "NoCardsAvailable"
	ReasonGameAlreadyStarted      = "GameAlreadyStarted"
	ReasonGameNotStarted          = "GameNotStarted"
	ReasonAlreadyRolled           = "AlreadyRolled"
	ReasonRoomFull                = "RoomFull"
	ReasonNotHost                 = "NotHost"
	ReasonNotEnoughPlayers        = "NotEnoughPlayers"
	ReasonUnknownPlayer           = "UnknownPlayer"
	ReasonPlayerBankrupt          = "PlayerBankrupt"
	ReasonMaxDevelopment          = "MaxDevelopment"
	ReasonCryptRequiresGraveyards = "CryptRequiresGraveyards"
	ReasonAlreadyHasCrypt         = "AlreadyHasCrypt"
	ReasonNotDevelopable          = "NotDevelopable"
	ReasonUnowned                 = "Unowned"
	ReasonUnknownTarget           = "UnknownTarget"
	ReasonInvalidTarget           = "InvalidTarget"
	ReasonUnknownProperty         = "UnknownProperty"
	ReasonNoRentDue               = "NoRentDue"
)

// Env carries everything a transition may depend on besides state and intent.
// The pipeline records Seed and Now in the log so replay is exact.
type Env struct {
	ActionID int64
	Seed     int64
	// Now is unix milliseconds stamped into lastUpdated.
	Now int64
}

// RollFunc turns a seed into a pair of movement dice.
type RollFunc func(seed int64) dice.Pair

// Result is the outcome of an accepted intent.
type Result struct {
	State *state.GameState
	// Changed is false when the intent was accepted as a no-op, such as a
	// repeated JOIN_GAME. Nothing should be persisted in that case.
	Changed bool
}

// Reducer applies intents. The zero value rolls with dice.RollPair.
type Reducer struct {
	Roll RollFunc
}

// Default is the reducer used by the server.
var Default = Reducer{}

// Apply runs the default reducer.
func Apply(s *state.GameState, in intent.Intent, env Env) (Result, error) {
	return Default.Apply(s, in, env)
}

type handler func(r Reducer, s *state.GameState, in intent.Intent, env Env) (bool, error)

var handlers = map[intent.Type]handler{
	intent.TypeRollDice:         rollDice,
	intent.TypePurchaseProperty: purchaseProperty,
	intent.TypeDevelopProperty:  developProperty,
	intent.TypePayRent:          payRent,
	intent.TypeUseStealCard:     useStealCard,
	intent.TypeEndTurn:          endTurn,
	intent.TypeStartGame:        startGame,
	intent.TypeJoinGame:         joinGame,
}

// Apply computes the next state for in. s is never modified.
func (r Reducer) Apply(s *state.GameState, in intent.Intent, env Env) (Result, error) {
	if s == nil {
		return Result{}, apperrors.New(apperrors.CodeValidation, "state is required")
	}
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	h, ok := handlers[in.Type]
	if !ok {
		return Result{}, apperrors.Rule(apperrors.CodeValidation, "UnknownType", fmt.Sprintf("unknown intent type %q", in.Type))
	}

	next := s.Clone()
	changed, err := h(r, next, in, env)
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{State: s, Changed: false}, nil
	}

	next.Version = s.Version + 1
	next.LastAppliedID = env.ActionID
	next.LastUpdated = env.Now
	hash, err := state.ComputeHash(next)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "hash next state", err)
	}
	next.Hash = hash
	return Result{State: next, Changed: true}, nil
}

func (r Reducer) roll(seed int64) dice.Pair {
	if r.Roll != nil {
		return r.Roll(seed)
	}
	return dice.RollPair(seed)
}

func illegal(reason, format string, args ...any) error {
	return apperrors.Rule(apperrors.CodeIllegalMove, reason, fmt.Sprintf(format, args...))
}

// actor returns the acting player after the common preconditions: present in
// the room, game started when required, and not bankrupt.
func actor(s *state.GameState, in intent.Intent, requireStarted bool) (*state.Player, error) {
	p := s.Player(in.PlayerID)
	if p == nil {
		return nil, illegal(ReasonUnknownPlayer, "player %s is not in this room", in.PlayerID)
	}
	if requireStarted && !s.GameStarted {
		return nil, illegal(ReasonGameNotStarted, "game has not started")
	}
	if p.Bankrupt {
		return nil, illegal(ReasonPlayerBankrupt, "player %s is bankrupt", in.PlayerID)
	}
	return p, nil
}

func requireTurn(s *state.GameState, p *state.Player) error {
	current := s.CurrentPlayer()
	if current == nil || current.UserID != p.UserID {
		return illegal(ReasonNotYourTurn, "it is not %s's turn", p.UserID)
	}
	return nil
}
