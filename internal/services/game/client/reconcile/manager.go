// Package reconcile keeps a client's displayed game state responsive while
// converging on the server's authoritative snapshots.
//
// Pending intents overlay a speculative state on top of the last
// authoritative one. An intent stops being pending once the authoritative
// version moves past the version it was submitted against, when it expires,
// or when the caller discards it after a rejection.
package reconcile

import (
	"sync"
	"time"

	"github.com/louisbranch/cryptopoly/internal/services/game/domain/intent"
	"github.com/louisbranch/cryptopoly/internal/services/game/domain/state"
)

// Updater predicts the effect of an intent. It receives a private copy and
// returns the predicted state; returning nil keeps the input unchanged.
type Updater func(*state.GameState) *state.GameState

// PendingIntent is one submitted but unconfirmed prediction.
type PendingIntent struct {
	ID     string
	Intent intent.Intent
	Update Updater
	// SubmittedAtVersion is the authoritative version the intent was made
	// against. It is meaningless until BaseKnown is true.
	SubmittedAtVersion int64
	BaseKnown          bool
	SubmittedAt        time.Time
}

// Manager holds the authoritative state and the pending overlays.
// It is safe for concurrent use.
type Manager struct {
	mu            sync.Mutex
	now           func() time.Time
	authoritative *state.GameState
	display       *state.GameState
	pending       []PendingIntent
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to age pending intents.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddPendingIntent records a prediction. If an authoritative state is known
// the display state is recomputed right away. Re-adding an id replaces the
// earlier prediction.
func (m *Manager) AddPendingIntent(id string, in intent.Intent, update Updater) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := PendingIntent{
		ID:          id,
		Intent:      in,
		Update:      update,
		SubmittedAt: m.now(),
	}
	if m.authoritative != nil {
		p.SubmittedAtVersion = m.authoritative.Version
		p.BaseKnown = true
	}
	m.removeLocked(id)
	m.pending = append(m.pending, p)
	m.recomputeLocked()
}

// Reconcile adopts next as the authoritative state. A snapshot older than
// the current one is ignored so the display never regresses. It reports
// whether next was adopted.
func (m *Manager) Reconcile(next *state.GameState) bool {
	if next == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authoritative != nil && next.Version < m.authoritative.Version {
		return false
	}
	m.authoritative = next.Clone()

	kept := m.pending[:0]
	for _, p := range m.pending {
		if !p.BaseKnown {
			p.SubmittedAtVersion = next.Version
			p.BaseKnown = true
		}
		if next.Version > p.SubmittedAtVersion {
			continue
		}
		kept = append(kept, p)
	}
	clear(m.pending[len(kept):])
	m.pending = kept
	m.recomputeLocked()
	return true
}

// GetCurrentDisplayState returns a copy of the speculative state when
// predictions are pending, else of the authoritative state. It returns nil
// before the first Reconcile.
func (m *Manager) GetCurrentDisplayState() *state.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.display != nil {
		return m.display.Clone()
	}
	if m.authoritative != nil {
		return m.authoritative.Clone()
	}
	return nil
}

// Authoritative returns a copy of the last adopted server state, or nil.
func (m *Manager) Authoritative() *state.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authoritative == nil {
		return nil
	}
	return m.authoritative.Clone()
}

// CleanupOldIntents drops predictions older than maxAge regardless of
// version and returns how many were dropped.
func (m *Manager) CleanupOldIntents(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	kept := m.pending[:0]
	for _, p := range m.pending {
		if p.SubmittedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, p)
	}
	dropped := len(m.pending) - len(kept)
	clear(m.pending[len(kept):])
	m.pending = kept
	if dropped > 0 {
		m.recomputeLocked()
	}
	return dropped
}

// Discard removes the prediction for id, typically after the server
// rejected it. It reports whether anything was removed.
func (m *Manager) Discard(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removeLocked(id) {
		return false
	}
	m.recomputeLocked()
	return true
}

// PendingCount returns the number of unresolved predictions.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) removeLocked(id string) bool {
	for i, p := range m.pending {
		if p.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// recomputeLocked replays pending predictions in submission order over a
// copy of the authoritative state. With nothing pending the display state
// collapses to the authoritative one.
func (m *Manager) recomputeLocked() {
	if m.authoritative == nil || len(m.pending) == 0 {
		m.display = nil
		return
	}
	speculative := m.authoritative.Clone()
	for _, p := range m.pending {
		if p.Update == nil {
			continue
		}
		if next := p.Update(speculative.Clone()); next != nil {
			speculative = next
		}
	}
	m.display = speculative
}
