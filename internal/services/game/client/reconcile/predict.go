package reconcile

import (
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/reducer"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Predict returns an Updater that runs in through the reducer locally.
// Dice are only ever rolled by the server, so ROLL_DICE predicts nothing,
// and a move the reducer rejects predicts nothing either.
func Predict(in intent.Intent) Updater {
	return func(s *state.GameState) *state.GameState {
		if in.Type == intent.TypeRollDice {
			return s
		}
		result, err := reducer.Default.Apply(s, in, reducer.Env{
			ActionID: s.LastAppliedID + 1,
			Now:      s.LastUpdated,
		})
		if err != nil {
			return s
		}
		return result.State
	}
}
