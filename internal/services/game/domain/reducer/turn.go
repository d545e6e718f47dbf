package reducer

import (
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

const maxConsecutiveDoubles = 3

func rollDice(r Reducer, s *state.GameState, in intent.Intent, env Env) (bool, error) {
	p, err := actor(s, in, true)
	if err != nil {
		return false, err
	}
	if err := requireTurn(s, p); err != nil {
		return false, err
	}
	if s.HasRolled && !canRollAgain(s, p) {
		return false, illegal(ReasonAlreadyRolled, "player %s already rolled this turn", p.UserID)
	}

	pair := r.roll(env.Seed)
	s.HasRolled = true
	s.DiceValues = pair.Values()
	s.LastDiceRoll = &pair

	if pair.IsDoubles {
		p.ConsecutiveDoubles++
	} else {
		p.ConsecutiveDoubles = 0
	}
	if p.ConsecutiveDoubles >= maxConsecutiveDoubles {
		p.Position = board.JailIndex
		p.ConsecutiveDoubles = 0
		return true, nil
	}

	oldPosition := p.Position
	newPosition := (oldPosition + pair.Total) % board.Size
	if newPosition < oldPosition {
		p.Money += board.StartBonus
	}
	if newPosition == board.GoToJailIndex {
		newPosition = board.JailIndex
		p.ConsecutiveDoubles = 0
	}
	p.Position = newPosition
	return true, nil
}

// canRollAgain allows another roll only right after doubles that did not
// land the player in the Ossuary.
func canRollAgain(s *state.GameState, p *state.Player) bool {
	return s.LastDiceRoll != nil && s.LastDiceRoll.IsDoubles && p.ConsecutiveDoubles > 0
}

func endTurn(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	p, err := actor(s, in, true)
	if err != nil {
		return false, err
	}
	if err := requireTurn(s, p); err != nil {
		return false, err
	}

	p.ConsecutiveDoubles = 0
	s.CurrentTurn = nextActiveTurn(s)
	s.DiceValues = nil
	s.LastDiceRoll = nil
	s.HasRolled = false
	return true, nil
}

// nextActiveTurn walks forward from the current turn, skipping bankrupt
// players. If everyone else is bankrupt the turn stays put.
func nextActiveTurn(s *state.GameState) int {
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		idx := (s.CurrentTurn + step) % n
		if !s.Players[idx].Bankrupt {
			return idx
		}
	}
	return s.CurrentTurn
}

func startGame(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	p, err := actor(s, in, false)
	if err != nil {
		return false, err
	}
	if s.GameStarted {
		return false, illegal(ReasonGameAlreadyStarted, "game has already started")
	}
	if !p.IsHost {
		return false, illegal(ReasonNotHost, "only the host can start the game")
	}
	if len(s.Players) < board.MinPlayers {
		return false, illegal(ReasonNotEnoughPlayers, "need at least %d players, have %d", board.MinPlayers, len(s.Players))
	}

	s.GameStarted = true
	s.CurrentTurn = 0
	s.DiceValues = nil
	s.LastDiceRoll = nil
	s.HasRolled = false
	return true, nil
}

func joinGame(_ Reducer, s *state.GameState, in intent.Intent, _ Env) (bool, error) {
	if s.Player(in.PlayerID) != nil {
		return false, nil
	}
	if s.GameStarted {
		return false, illegal(ReasonGameAlreadyStarted, "game has already started")
	}
	if len(s.Players) >= board.MaxPlayers {
		return false, illegal(ReasonRoomFull, "room already has %d players", board.MaxPlayers)
	}
	payload, err := intent.Decode[intent.JoinPayload](in)
	if err != nil {
		return false, err
	}
	name := payload.Name
	if name == "" {
		name = in.PlayerID
	}

	slot := len(s.Players)
	s.Players = append(s.Players, state.Player{
		UserID:     in.PlayerID,
		Name:       name,
		Token:      board.TokenForSlot(slot),
		IsHost:     slot == 0,
		Position:   board.StartIndex,
		Money:      board.StartingMoney,
		Properties: []string{},
		StealCards: board.StartingStealCards,
	})
	return true, nil
}
