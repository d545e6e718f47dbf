package storage

import (
	"sync"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Observers fans commit notifications out to registered observers.
// Stores embed it to implement AddObserver.
type Observers struct {
	mu        sync.RWMutex
	observers []CommitObserver
}

// AddObserver registers fn for every future commit.
func (o *Observers) AddObserver(fn CommitObserver) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

// Notify calls every observer with a private copy of s.
func (o *Observers) Notify(roomID string, s *state.GameState) {
	o.mu.RLock()
	observers := o.observers
	o.mu.RUnlock()
	for _, fn := range observers {
		fn(roomID, s.Clone())
	}
}
