// Package dice rolls the movement dice for a turn.
package dice

import (
	"errors"
	"math/rand"
)

// ErrInvalidFace indicates a movement die outside the 1-6 range.
var ErrInvalidFace = errors.New("movement dice must be between 1 and 6")

// MovementSides is the number of faces on each movement die.
const MovementSides = 6

// Pair is the outcome of the two movement dice.
type Pair struct {
	First     int  `json:"first"`
	Second    int  `json:"second"`
	Total     int  `json:"total"`
	IsDoubles bool `json:"isDoubles"`
}

// Values returns the two faces in roll order.
func (p Pair) Values() []int {
	return []int{p.First, p.Second}
}

// EvaluatePair builds a Pair from two known faces.
func EvaluatePair(first, second int) (Pair, error) {
	if !validFace(first) || !validFace(second) {
		return Pair{}, ErrInvalidFace
	}
	return Pair{
		First:     first,
		Second:    second,
		Total:     first + second,
		IsDoubles: first == second,
	}, nil
}

// RollPair rolls the two movement dice from seed.
//
// The same seed always yields the same pair; the first die is drawn before
// the second from a single generator.
func RollPair(seed int64) Pair {
	rng := rand.New(rand.NewSource(seed))
	first := rng.Intn(MovementSides) + 1
	second := rng.Intn(MovementSides) + 1
	return Pair{
		First:     first,
		Second:    second,
		Total:     first + second,
		IsDoubles: first == second,
	}
}

func validFace(face int) bool {
	return face >= 1 && face <= MovementSides
}
