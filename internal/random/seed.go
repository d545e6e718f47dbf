// Package random draws the entropy that seeds server-side dice rolls.
//
// Seeds are drawn from crypto/rand so players cannot predict rolls, then
// recorded in the action log so every roll can be reproduced on replay.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// SeedFunc produces a fresh seed for one apply attempt.
type SeedFunc func() (int64, error)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	return seedFrom(crand.Reader)
}

// Fixed returns a SeedFunc that always yields seed. Used by tests and replay.
func Fixed(seed int64) SeedFunc {
	return func() (int64, error) { return seed, nil }
}

func seedFrom(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
