package reducer

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/board"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/dice"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

const testNow = int64(1700000000000)

// fixedRolls returns a reducer that hands out the given faces in order.
func fixedRolls(t *testing.T, faces ...[2]int) Reducer {
	t.Helper()
	next := 0
	return Reducer{Roll: func(int64) dice.Pair {
		if next >= len(faces) {
			t.Fatalf("unexpected roll #%d", next+1)
		}
		pair, err := dice.EvaluatePair(faces[next][0], faces[next][1])
		if err != nil {
			t.Fatalf("bad test faces: %v", err)
		}
		next++
		return pair
	}}
}

func newIntent(t *testing.T, typ intent.Type, player string, payload any) intent.Intent {
	t.Helper()
	in, err := intent.New(typ, player, payload, testNow)
	if err != nil {
		t.Fatalf("intent.New: %v", err)
	}
	return in
}

// mustApply applies in and fails the test on any error.
func mustApply(t *testing.T, r Reducer, s *state.GameState, in intent.Intent) *state.GameState {
	t.Helper()
	res, err := r.Apply(s, in, Env{ActionID: s.LastAppliedID + 1, Now: testNow})
	if err != nil {
		t.Fatalf("apply %s for %s: %v", in.Type, in.PlayerID, err)
	}
	return res.State
}

// startedGame returns a started two-player game with a and b.
func startedGame(t *testing.T) *state.GameState {
	t.Helper()
	s := state.New("room")
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "a", intent.JoinPayload{Name: "Ana"}))
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "b", intent.JoinPayload{Name: "Bo"}))
	return mustApply(t, Default, s, newIntent(t, intent.TypeStartGame, "a", nil))
}

func give(s *state.GameState, owner string, ids ...string) {
	p := s.Player(owner)
	for _, id := range ids {
		s.Properties[id] = state.PropertyState{Owner: owner}
		p.Properties = append(p.Properties, id)
	}
}

func expectReason(t *testing.T, err error, code apperrors.Code, reason string) {
	t.Helper()
	if !errors.Is(err, apperrors.Rule(code, reason, "")) {
		t.Fatalf("error = %v, want %s/%s", err, code, reason)
	}
}

func TestJoinAssignsHostAndTokens(t *testing.T) {
	s := state.New("room")
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "a", intent.JoinPayload{Name: "Ana"}))
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "b", nil))

	if len(s.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(s.Players))
	}
	a, b := s.Players[0], s.Players[1]
	if !a.IsHost || b.IsHost {
		t.Fatal("expected only the first joiner to host")
	}
	if a.Token != "ghost" || b.Token != "bat" {
		t.Fatalf("unexpected tokens %s, %s", a.Token, b.Token)
	}
	if b.Name != "b" {
		t.Fatalf("expected name to default to user id, got %q", b.Name)
	}
	if a.Money != board.StartingMoney || a.StealCards != board.StartingStealCards {
		t.Fatalf("unexpected starting resources %+v", a)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	s := state.New("room")
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "a", nil))

	res, err := Default.Apply(s, newIntent(t, intent.TypeJoinGame, "a", intent.JoinPayload{Name: "again"}), Env{ActionID: 2, Now: testNow})
	if err != nil {
		t.Fatalf("repeat join: %v", err)
	}
	if res.Changed {
		t.Fatal("expected repeat join to be a no-op")
	}
	if len(res.State.Players) != 1 || res.State.Version != s.Version {
		t.Fatalf("repeat join changed state: players=%d version=%d", len(res.State.Players), res.State.Version)
	}
}

func TestJoinRejectsAfterStartAndWhenFull(t *testing.T) {
	s := startedGame(t)
	_, err := Default.Apply(s, newIntent(t, intent.TypeJoinGame, "late", nil), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonGameAlreadyStarted)

	// A known player re-joining after start stays a no-op.
	res, err := Default.Apply(s, newIntent(t, intent.TypeJoinGame, "a", nil), Env{ActionID: 4})
	if err != nil || res.Changed {
		t.Fatalf("expected no-op rejoin, got changed=%v err=%v", res.Changed, err)
	}

	full := state.New("room")
	for i := 0; i < board.MaxPlayers; i++ {
		full = mustApply(t, Default, full, newIntent(t, intent.TypeJoinGame, string(rune('a'+i)), nil))
	}
	_, err = Default.Apply(full, newIntent(t, intent.TypeJoinGame, "z", nil), Env{ActionID: 9})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonRoomFull)
}

func TestStartGameRules(t *testing.T) {
	s := state.New("room")
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "a", nil))

	_, err := Default.Apply(s, newIntent(t, intent.TypeStartGame, "a", nil), Env{ActionID: 2})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotEnoughPlayers)

	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "b", nil))
	_, err = Default.Apply(s, newIntent(t, intent.TypeStartGame, "b", nil), Env{ActionID: 3})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotHost)

	_, err = Default.Apply(s, newIntent(t, intent.TypeStartGame, "zed", nil), Env{ActionID: 3})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonUnknownPlayer)

	s = mustApply(t, Default, s, newIntent(t, intent.TypeStartGame, "a", nil))
	if !s.GameStarted || s.CurrentTurn != 0 {
		t.Fatalf("expected started game on turn 0, got %+v", s)
	}
	_, err = Default.Apply(s, newIntent(t, intent.TypeStartGame, "a", nil), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonGameAlreadyStarted)
}

func TestActionsRequireStartedGame(t *testing.T) {
	s := state.New("room")
	s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, "a", nil))
	_, err := Default.Apply(s, newIntent(t, intent.TypeRollDice, "a", nil), Env{ActionID: 2})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonGameNotStarted)
}

func TestRollPassingStartScenario(t *testing.T) {
	s := startedGame(t)
	s.Players[0].Position = 35
	s.Players[0].Money = 1500

	next := mustApply(t, fixedRolls(t, [2]int{6, 4}), s, newIntent(t, intent.TypeRollDice, "a", nil))
	a := next.Players[0]
	if a.Position != 5 {
		t.Fatalf("position = %d, want 5", a.Position)
	}
	if a.Money != 1500+board.StartBonus {
		t.Fatalf("money = %d, want %d", a.Money, 1500+board.StartBonus)
	}
	if next.LastDiceRoll == nil || next.LastDiceRoll.IsDoubles || next.LastDiceRoll.Total != 10 {
		t.Fatalf("unexpected last roll %+v", next.LastDiceRoll)
	}
	if !reflect.DeepEqual(next.DiceValues, []int{6, 4}) {
		t.Fatalf("dice values = %v", next.DiceValues)
	}
	if s.Players[0].Position != 35 {
		t.Fatal("input state was mutated")
	}
}

func TestRollRequiresTurnAndSingleRoll(t *testing.T) {
	s := startedGame(t)
	_, err := Default.Apply(s, newIntent(t, intent.TypeRollDice, "b", nil), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotYourTurn)

	r := fixedRolls(t, [2]int{1, 2})
	s = mustApply(t, r, s, newIntent(t, intent.TypeRollDice, "a", nil))
	_, err = r.Apply(s, newIntent(t, intent.TypeRollDice, "a", nil), Env{ActionID: 5})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonAlreadyRolled)
}

func TestDoublesAllowRerollAndThreeSendToJail(t *testing.T) {
	s := startedGame(t)
	r := fixedRolls(t, [2]int{1, 1}, [2]int{2, 2}, [2]int{3, 3})

	s = mustApply(t, r, s, newIntent(t, intent.TypeRollDice, "a", nil))
	if s.Players[0].ConsecutiveDoubles != 1 || s.Players[0].Position != 2 {
		t.Fatalf("after first doubles: %+v", s.Players[0])
	}
	s = mustApply(t, r, s, newIntent(t, intent.TypeRollDice, "a", nil))
	if s.Players[0].ConsecutiveDoubles != 2 || s.Players[0].Position != 6 {
		t.Fatalf("after second doubles: %+v", s.Players[0])
	}
	s = mustApply(t, r, s, newIntent(t, intent.TypeRollDice, "a", nil))
	if s.Players[0].Position != board.JailIndex || s.Players[0].ConsecutiveDoubles != 0 {
		t.Fatalf("after third doubles: %+v", s.Players[0])
	}

	_, err := r.Apply(s, newIntent(t, intent.TypeRollDice, "a", nil), Env{ActionID: s.LastAppliedID + 1})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonAlreadyRolled)
}

func TestLandingOnWardenGoesToJail(t *testing.T) {
	s := startedGame(t)
	s.Players[0].Position = 25
	s = mustApply(t, fixedRolls(t, [2]int{2, 3}), s, newIntent(t, intent.TypeRollDice, "a", nil))
	if s.Players[0].Position != board.JailIndex {
		t.Fatalf("position = %d, want jail", s.Players[0].Position)
	}
	if s.Players[0].Money != board.StartingMoney {
		t.Fatal("expected no start bonus for being sent to jail")
	}
}

func TestEndTurnAdvancesAndClearsDice(t *testing.T) {
	s := startedGame(t)
	s = mustApply(t, fixedRolls(t, [2]int{1, 2}), s, newIntent(t, intent.TypeRollDice, "a", nil))

	_, err := Default.Apply(s, newIntent(t, intent.TypeEndTurn, "b", nil), Env{ActionID: 5})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotYourTurn)

	s = mustApply(t, Default, s, newIntent(t, intent.TypeEndTurn, "a", nil))
	if s.CurrentTurn != 1 || s.HasRolled || s.DiceValues != nil || s.LastDiceRoll != nil {
		t.Fatalf("unexpected state after end turn: %+v", s)
	}
	s = mustApply(t, Default, s, newIntent(t, intent.TypeEndTurn, "b", nil))
	if s.CurrentTurn != 0 {
		t.Fatalf("expected turn to wrap to 0, got %d", s.CurrentTurn)
	}
}

func TestEndTurnSkipsBankruptPlayers(t *testing.T) {
	s := state.New("room")
	for _, id := range []string{"a", "b", "c"} {
		s = mustApply(t, Default, s, newIntent(t, intent.TypeJoinGame, id, nil))
	}
	s = mustApply(t, Default, s, newIntent(t, intent.TypeStartGame, "a", nil))
	s.Players[1].Bankrupt = true

	s = mustApply(t, Default, s, newIntent(t, intent.TypeEndTurn, "a", nil))
	if s.CurrentTurn != 2 {
		t.Fatalf("expected bankrupt player to be skipped, turn = %d", s.CurrentTurn)
	}
	_, err := Default.Apply(s, newIntent(t, intent.TypeUseStealCard, "b", intent.StealPayload{TargetID: "a", Amount: 1}), Env{ActionID: 10})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonPlayerBankrupt)
}

func TestPurchaseProperty(t *testing.T) {
	s := startedGame(t)
	buy := newIntent(t, intent.TypePurchaseProperty, "a", intent.PropertyPayload{PropertyID: "t1"})
	s = mustApply(t, Default, s, buy)

	sq, _ := board.Lookup("t1")
	if s.Properties["t1"].Owner != "a" || !s.Players[0].Owns("t1") {
		t.Fatal("expected a to own t1")
	}
	if s.Players[0].Money != board.StartingMoney-sq.Price {
		t.Fatalf("money = %d", s.Players[0].Money)
	}

	_, err := Default.Apply(s, buy, Env{ActionID: 5})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonAlreadyOwned)

	_, err = Default.Apply(s, newIntent(t, intent.TypePurchaseProperty, "b", intent.PropertyPayload{PropertyID: "t2"}), Env{ActionID: 5})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotYourTurn)

	s.Players[0].Money = 10
	_, err = Default.Apply(s, newIntent(t, intent.TypePurchaseProperty, "a", intent.PropertyPayload{PropertyID: "t22"}), Env{ActionID: 5})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonInsufficientFunds)
}

func TestDevelopCryptScenario(t *testing.T) {
	s := startedGame(t)
	give(s, "a", "t1", "t2")
	s.Properties["t1"] = state.PropertyState{Owner: "a", Graveyards: 4}

	next := mustApply(t, Default, s, newIntent(t, intent.TypeDevelopProperty, "a", intent.DevelopPayload{PropertyID: "t1", Kind: intent.DevelopCrypt}))
	prop := next.Properties["t1"]
	if !prop.HasCrypt || prop.Graveyards != 0 {
		t.Fatalf("unexpected property %+v", prop)
	}
	if next.Players[0].Money != board.StartingMoney-board.CryptCost {
		t.Fatalf("money = %d", next.Players[0].Money)
	}

	_, err := Default.Apply(next, newIntent(t, intent.TypeDevelopProperty, "a", intent.DevelopPayload{PropertyID: "t1", Kind: intent.DevelopCrypt}), Env{ActionID: 10})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonAlreadyHasCrypt)
	_, err = Default.Apply(next, newIntent(t, intent.TypeDevelopProperty, "a", intent.DevelopPayload{PropertyID: "t1", Kind: intent.DevelopGraveyard}), Env{ActionID: 10})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonMaxDevelopment)
}

func TestDevelopNotOwnerLeavesStateUnchanged(t *testing.T) {
	s := startedGame(t)
	give(s, "a", "t1", "t2")
	before := s.Clone()

	res, err := Default.Apply(s, newIntent(t, intent.TypeDevelopProperty, "b", intent.DevelopPayload{PropertyID: "t1", Kind: intent.DevelopGraveyard}), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotOwner)
	if res.State != nil {
		t.Fatal("expected no state on failure")
	}
	if !reflect.DeepEqual(s, before) || s.Version != before.Version {
		t.Fatal("failed develop mutated the input state")
	}
}

func TestDevelopGraveyardRules(t *testing.T) {
	s := startedGame(t)
	give(s, "a", "t1")

	develop := func(id, kind string) intent.Intent {
		return newIntent(t, intent.TypeDevelopProperty, "a", intent.DevelopPayload{PropertyID: id, Kind: kind})
	}

	_, err := Default.Apply(s, develop("t1", intent.DevelopGraveyard), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonIncompleteGroup)

	give(s, "a", "t2", "h1")
	_, err = Default.Apply(s, develop("h1", intent.DevelopGraveyard), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNotDevelopable)

	_, err = Default.Apply(s, develop("t1", intent.DevelopCrypt), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonCryptRequiresGraveyards)

	for i := 1; i <= board.MaxGraveyards; i++ {
		s = mustApply(t, Default, s, develop("t1", intent.DevelopGraveyard))
		if s.Properties["t1"].Graveyards != i {
			t.Fatalf("graveyards = %d, want %d", s.Properties["t1"].Graveyards, i)
		}
	}
	_, err = Default.Apply(s, develop("t1", intent.DevelopGraveyard), Env{ActionID: 20})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonMaxDevelopment)

	s.Players[0].Money = board.GraveyardCost - 1
	_, err = Default.Apply(s, develop("t2", intent.DevelopGraveyard), Env{ActionID: 20})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonInsufficientFunds)
}

func TestPayRentConservesMoney(t *testing.T) {
	s := startedGame(t)
	give(s, "a", "t1", "t2")
	s.Properties["t1"] = state.PropertyState{Owner: "a", Graveyards: 2}

	before := s.Players[0].Money + s.Players[1].Money
	next := mustApply(t, Default, s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{PropertyID: "t1"}))
	if next.Players[1].Money != board.StartingMoney-30 {
		t.Fatalf("payer money = %d", next.Players[1].Money)
	}
	if after := next.Players[0].Money + next.Players[1].Money; after != before {
		t.Fatalf("money not conserved: %d -> %d", before, after)
	}

	next = mustApply(t, Default, s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{ToPlayerID: "a", Amount: 75}))
	if next.Players[0].Money != board.StartingMoney+75 || next.Players[1].Money != board.StartingMoney-75 {
		t.Fatalf("unexpected fixed rent transfer %+v", next.Players)
	}
}

func TestPayRentRejections(t *testing.T) {
	s := startedGame(t)
	give(s, "a", "t1")

	_, err := Default.Apply(s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{PropertyID: "t3"}), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonUnowned)

	_, err = Default.Apply(s, newIntent(t, intent.TypePayRent, "a", intent.RentPayload{PropertyID: "t1"}), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonInvalidTarget)

	_, err = Default.Apply(s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{ToPlayerID: "ghost", Amount: 5}), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonUnknownTarget)

	s.Players[1].Money = 10
	before := s.Clone()
	_, err = Default.Apply(s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{ToPlayerID: "a", Amount: 11}), Env{ActionID: 4})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonInsufficientFunds)
	if !reflect.DeepEqual(s, before) {
		t.Fatal("rejected rent mutated state")
	}
}

func TestDepotAndUtilityRent(t *testing.T) {
	s := startedGame(t)
	give(s, "a", "h1", "h2", "u1")
	s.LastDiceRoll = &dice.Pair{First: 3, Second: 4, Total: 7}

	next := mustApply(t, Default, s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{PropertyID: "h2"}))
	if paid := board.StartingMoney - next.Players[1].Money; paid != 50 {
		t.Fatalf("depot rent = %d, want 50", paid)
	}
	next = mustApply(t, Default, s, newIntent(t, intent.TypePayRent, "b", intent.RentPayload{PropertyID: "u1"}))
	if paid := board.StartingMoney - next.Players[1].Money; paid != 28 {
		t.Fatalf("utility rent = %d, want 28", paid)
	}
}

func TestStealCardScenario(t *testing.T) {
	s := startedGame(t)
	s.Players[1].Money = 300

	before := s.Players[0].Money + s.Players[1].Money
	next := mustApply(t, Default, s, newIntent(t, intent.TypeUseStealCard, "a", intent.StealPayload{TargetID: "b", Amount: 500}))
	if next.Players[0].Money != board.StartingMoney+300 {
		t.Fatalf("stealer money = %d", next.Players[0].Money)
	}
	if next.Players[1].Money != 0 {
		t.Fatalf("target money = %d, want 0", next.Players[1].Money)
	}
	if next.Players[0].StealCards != board.StartingStealCards-1 {
		t.Fatalf("cards = %d", next.Players[0].StealCards)
	}
	if after := next.Players[0].Money + next.Players[1].Money; after != before {
		t.Fatalf("money not conserved: %d -> %d", before, after)
	}

	_, err := Default.Apply(next, newIntent(t, intent.TypeUseStealCard, "a", intent.StealPayload{TargetID: "b", Amount: 1}), Env{ActionID: 10})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonNoCardsAvailable)
	_, err = Default.Apply(s, newIntent(t, intent.TypeUseStealCard, "a", intent.StealPayload{TargetID: "a", Amount: 1}), Env{ActionID: 10})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonInvalidTarget)
	_, err = Default.Apply(s, newIntent(t, intent.TypeUseStealCard, "a", intent.StealPayload{TargetID: "x", Amount: 1}), Env{ActionID: 10})
	expectReason(t, err, apperrors.CodeIllegalMove, ReasonUnknownTarget)
}

func TestValidationErrorsReachCaller(t *testing.T) {
	s := startedGame(t)
	in := newIntent(t, intent.TypeRollDice, "a", nil)
	in.Timestamp = 0
	_, err := Default.Apply(s, in, Env{ActionID: 4})
	if apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// TestVersionAndInvariantsAcrossGame walks a short game and checks counters,
// hash, and structural invariants after every accepted intent.
func TestVersionAndInvariantsAcrossGame(t *testing.T) {
	r := fixedRolls(t, [2]int{2, 3}, [2]int{4, 5}, [2]int{1, 3})
	s := state.New("room")
	steps := []intent.Intent{
		newIntent(t, intent.TypeJoinGame, "a", nil),
		newIntent(t, intent.TypeJoinGame, "b", nil),
		newIntent(t, intent.TypeStartGame, "a", nil),
		newIntent(t, intent.TypeRollDice, "a", nil),
		newIntent(t, intent.TypePurchaseProperty, "a", intent.PropertyPayload{PropertyID: "h1"}),
		newIntent(t, intent.TypeEndTurn, "a", nil),
		newIntent(t, intent.TypeRollDice, "b", nil),
		newIntent(t, intent.TypePurchaseProperty, "b", intent.PropertyPayload{PropertyID: "t3"}),
		newIntent(t, intent.TypePayRent, "b", intent.RentPayload{PropertyID: "h1"}),
		newIntent(t, intent.TypeUseStealCard, "b", intent.StealPayload{TargetID: "a", Amount: 40}),
		newIntent(t, intent.TypeEndTurn, "b", nil),
		newIntent(t, intent.TypeRollDice, "a", nil),
	}
	for i, in := range steps {
		prevVersion := s.Version
		next := mustApply(t, r, s, in)
		if next.Version != prevVersion+1 {
			t.Fatalf("step %d: version %d -> %d", i, prevVersion, next.Version)
		}
		if next.LastAppliedID != int64(i+1) {
			t.Fatalf("step %d: lastAppliedId = %d", i, next.LastAppliedID)
		}
		if next.LastUpdated != testNow {
			t.Fatalf("step %d: lastUpdated = %d", i, next.LastUpdated)
		}
		if err := next.VerifyHash(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if err := next.CheckInvariants(); err != nil {
			t.Fatalf("step %d: invariants: %v", i, err)
		}
		s = next
	}
}

func TestSameSeedSameOutcome(t *testing.T) {
	s := startedGame(t)
	in := newIntent(t, intent.TypeRollDice, "a", nil)
	env := Env{ActionID: 4, Seed: 12345, Now: testNow}
	first, err := Apply(s, in, env)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	second, err := Apply(s, in, env)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if first.State.Hash != second.State.Hash {
		t.Fatal("expected identical seeds to produce identical states")
	}
}
